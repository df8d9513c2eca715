package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/shirou/gopsutil/process"

	"gimp-server/domain"
	"gimp-server/errors"
	"gimp-server/runtime"
	"gimp-server/services"
)

// Server exposes the relay over HTTP plus an optional persistent
// websocket channel. It contains no merge, room, or eviction logic;
// everything is delegated to the group service.
type Server struct {
	log                  *slog.Logger
	groups               services.IGroupService
	connectionBufferSize int
	socketEnabled        bool
}

func NewServer(log *slog.Logger, groups services.IGroupService,
	connectionBufferSize int, socketEnabled bool) *Server {
	return &Server{
		log:                  log,
		groups:               groups,
		connectionBufferSize: connectionBufferSize,
		socketEnabled:        socketEnabled,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/group/{group}/broadcast", s.handleBroadcast)
	mux.HandleFunc("GET /api/group/{group}/ping", s.handlePing)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	if s.socketEnabled {
		mux.HandleFunc("GET /ws", s.handleSocket)
	}
	return mux
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, fmt.Errorf("reading body: %w", err))
		return
	}
	payload, err := decodePayload(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// HTTP submits carry no subscription identity, so the broadcast
	// reaches every subscriber of the group.
	view, err := s.groups.SubmitUpdate(group, "", payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	views, err := s.groups.GetGroup(r.PathValue("group"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

type statsResponse struct {
	runtime.Stats
	PID        int     `json:"pid"`
	RAMBytes   uint64  `json:"ramBytes"`
	CPUPercent float64 `json:"cpuPercent"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{Stats: s.groups.Stats(), PID: os.Getpid()}

	// Process stats are best-effort decoration, never a failure.
	if ram, cpu, err := selfStats(); err == nil {
		resp.RAMBytes = ram
		resp.CPUPercent = cpu
	} else {
		s.log.Debug("Failed to collect self stats", "err", err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// selfStats retrieves memory and CPU usage of this process.
func selfStats() (uint64, float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}

// decodePayload unmarshals an update, translating type mismatches
// (a string where a number belongs) into a ValidationError naming
// the offending field.
func decodePayload(raw []byte) (domain.UpdatePayload, error) {
	var payload domain.UpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return domain.UpdatePayload{}, errors.ValidationError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s", typeErr.Type),
			}
		}
		return domain.UpdatePayload{}, errors.ValidationError{Field: "payload", Reason: "malformed JSON"}
	}
	return payload, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"err": err.Error()})
}
