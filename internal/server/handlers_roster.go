package server

import (
	"net/http"

	"stagehand/internal/api"
	"stagehand/internal/roster"
)

func (s *Server) handleListPerformers(w http.ResponseWriter, r *http.Request) {
	performers, err := s.deps.Roster.Performers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.PerformerListResponse{Performers: api.FromPerformers(performers)})
}

func (s *Server) handleGetPerformer(w http.ResponseWriter, r *http.Request) {
	performer, err := s.deps.Roster.Performer(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromPerformer(performer))
}

func (s *Server) handleAddPerformer(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.PerformerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	performer, err := s.deps.Roster.AddPerformer(r.Context(), req.Name, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, api.FromPerformer(performer))
}

func (s *Server) handleDeletePerformer(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.PerformerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	performer, err := s.deps.Roster.DeletePerformer(r.Context(), req.Name, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromPerformer(performer))
}

func (s *Server) handleAddPart(w http.ResponseWriter, r *http.Request) {
	var req api.AddPartRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	part, err := s.deps.Roster.AddPart(r.Context(), roster.PartInput{
		Name:      req.Name,
		Type:      req.Type,
		Performer: req.DancerName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, api.FromPart(part))
}

func (s *Server) handleEditPart(w http.ResponseWriter, r *http.Request) {
	var req api.EditPartRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	part, err := s.deps.Roster.EditPart(r.Context(), roster.EditPartInput{
		ID:        req.ID,
		Name:      req.Name,
		Type:      req.Type,
		Performer: req.DancerName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromPart(part))
}

func (s *Server) handleDeletePart(w http.ResponseWriter, r *http.Request) {
	var req api.DeletePartRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	part, err := s.deps.Roster.DeletePart(r.Context(), req.ID, req.DancerName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.FromPart(part))
}
