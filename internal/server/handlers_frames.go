package server

import (
	"net/http"
	"strconv"
	"strings"

	"stagehand/internal/api"
	"stagehand/internal/frames"
)

func (s *Server) handleFrameAt(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("start"))
	start, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, r, badRequest("start query parameter must be an integer"))
		return
	}
	frame, err := s.deps.Frames.FrameAt(r.Context(), start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromFrame(frame))
}

func (s *Server) handleFrameIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Frames.FrameIDs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	s.writeJSON(w, r, http.StatusOK, api.FrameIDsResponse{IDs: ids})
}

func (s *Server) handleListFrames(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Frames.Frames(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FrameListResponse{Frames: api.FromFrames(list)})
}

func (s *Server) handleAddFrame(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.AddFrameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	frame, err := s.deps.Frames.Create(r.Context(), *req.Start, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, api.FromFrame(frame))
}

func (s *Server) handleEditFrame(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.EditFrameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	frame, err := s.deps.Frames.Edit(r.Context(), frames.EditInput{FrameID: req.FrameID, Start: req.Start}, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromFrame(frame))
}

func (s *Server) handleDeleteFrame(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.DeleteFrameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	frame, err := s.deps.Frames.Delete(r.Context(), req.FrameID, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromFrame(frame))
}

func (s *Server) handleFrameDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.deps.Frames.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if snap == nil {
		s.writeError(w, r, notFound("frame %d not found", id))
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromSnapshot(snap))
}

func (s *Server) handleEditPositions(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.EditPositionsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	inputs := make([]frames.PositionInput, 0, len(req.Positions))
	for _, p := range req.Positions {
		inputs = append(inputs, frames.PositionInput{Performer: p.DancerName, X: p.X, Y: p.Y, Z: p.Z})
	}
	snap, err := s.deps.Frames.EditPositions(r.Context(), id, inputs, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromSnapshot(snap))
}

func (s *Server) handlePositionMap(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.deps.Frames.PositionMap(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.PositionMapResponse{Frames: api.FromSnapshots(snaps)})
}
