package httpserver

import (
	"net/http"

	"venue_hotel/internal/domain"
)

func (h *Handlers) listMappings(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Channel.ListMappings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]mappingDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMappingDTO(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) createMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID           int64 `json:"roomId" validate:"gt=0"`
		Beds24PropertyID int64 `json:"beds24PropertyId" validate:"gte=0"`
		Beds24RoomID     int64 `json:"beds24RoomId" validate:"gt=0"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Channel.CreateMapping(r.Context(), domain.RoomMapping{
		RoomID: req.RoomID, Beds24PropertyID: req.Beds24PropertyID, Beds24RoomID: req.Beds24RoomID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMappingDTO(m))
}

func (h *Handlers) deleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Channel.DeleteMapping(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// push sends one room when roomId is set, otherwise every active mapping.
// Without from/to the configured sync window starting today is used.
func (h *Handlers) push(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID int64  `json:"roomId" validate:"gte=0"`
		From   string `json:"from"`
		To     string `json:"to"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	win := h.Channel.DefaultWindow(h.SyncWindowDays)
	if req.From != "" || req.To != "" {
		from, err := parseDay("from", req.From)
		if err != nil {
			writeError(w, r, err)
			return
		}
		to, err := parseDay("to", req.To)
		if err != nil {
			writeError(w, r, err)
			return
		}
		win = domain.NewDateRange(from, to)
	}

	if req.RoomID > 0 {
		res, err := h.Channel.Push(r.Context(), req.RoomID, win)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPushResultDTO(res))
		return
	}

	results, err := h.Channel.PushAll(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]pushResultDTO, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
		out = append(out, toPushResultDTO(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": len(out), "failed": failed, "items": out})
}

func (h *Handlers) pull(w http.ResponseWriter, r *http.Request) {
	res, err := h.Channel.Pull(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPullResultDTO(res))
}

func (h *Handlers) syncLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50, 1, 500)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ls, err := h.Channel.ListSyncLogs(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]syncLogDTO, 0, len(ls))
	for _, l := range ls {
		out = append(out, toSyncLogDTO(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
