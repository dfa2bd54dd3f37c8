package server

import (
	"errors"
	"io"
	"net/http"

	resumatchErrors "resumatch/internal/errors"
	"resumatch/internal/normalize"
	"resumatch/internal/observability"
	"resumatch/internal/types"
)

const multipartMemory = 8 << 20

// uploadHandler ingests a multipart resume upload into a new session.
// Uploading with an existing session id replaces that session.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, r, resumatchErrors.NewValidationError(resumatchErrors.ErrCodeFileTooLarge,
				"Upload exceeds the request size limit", err))
			return
		}
		s.writeError(w, r, resumatchErrors.NewInsufficientInputError("file", "No file in request"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, resumatchErrors.NewInsufficientInputError("file", "No file in request"))
		return
	}
	defer func() { _ = file.Close() }()
	if header.Filename == "" {
		s.writeError(w, r, resumatchErrors.NewInsufficientInputError("file", "No file selected"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, resumatchErrors.NewIOError(resumatchErrors.ErrCodeFileNotReadable, "Failed to read upload", err))
		return
	}

	sess, err := s.analysis.Ingest(ctx, header.Filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	path, err := s.analysis.Ingestor().Store(header.Filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if previous := sessionID(r, r.FormValue("sessionId")); previous != "" {
		s.dropSession(r, previous)
	}
	stored := s.sessions.Create(sess, path)
	s.observability.RecordSessionEvent(ctx, observability.SessionCreated)

	s.Logger.Info("Resume uploaded",
		"session_id", stored.ID,
		"filename", stored.Filename,
		"domain", stored.Domain,
		"text_length", len(stored.ResumeText))

	s.writeJSON(w, http.StatusCreated, types.UploadResult{
		Message:        "Resume processed successfully",
		SessionID:      stored.ID,
		Filename:       stored.Filename,
		DetectedDomain: stored.Domain,
		Metadata:       stored.Metadata,
		TextLength:     len(stored.ResumeText),
	})
}

// deleteHandler removes a session and its stored upload.
func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := sessionID(r, req.SessionID)
	if id == "" {
		s.writeError(w, r, missingSession())
		return
	}

	_, path, err := s.sessions.Delete(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.removeUpload(path)
	s.observability.RecordSessionEvent(r.Context(), observability.SessionDeleted)

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Resume deleted"})
}

// rateHandler scores the session's resume against a job requirement.
func (s *Server) rateHandler(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	sess, ok := s.sessionFromJSON(w, r, &req, func() string { return req.SessionID })
	if !ok {
		return
	}

	report, err := s.analysis.Analyze(r.Context(), sess, req.JobRequirement)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) coverLetterHandler(w http.ResponseWriter, r *http.Request) {
	var req CoverLetterRequest
	sess, ok := s.sessionFromJSON(w, r, &req, func() string { return req.SessionID })
	if !ok {
		return
	}

	letter, err := s.analysis.CoverLetter(r.Context(), sess, req.JobRequirement, req.CompanyName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, letter)
}

func (s *Server) interviewPrepHandler(w http.ResponseWriter, r *http.Request) {
	var req InterviewPrepRequest
	sess, ok := s.sessionFromJSON(w, r, &req, func() string { return req.SessionID })
	if !ok {
		return
	}

	prep, err := s.analysis.InterviewPrep(r.Context(), sess, req.JobRequirement)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prep)
}

// salaryHandler accepts the session id and location as query parameters
// on GET or as a JSON body on POST.
func (s *Server) salaryHandler(w http.ResponseWriter, r *http.Request) {
	var req SalaryRequest
	if r.Method == http.MethodGet {
		req.SessionID = r.URL.Query().Get("sessionId")
		req.Location = r.URL.Query().Get("location")
		if err := validateRequest(&req); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.lookupSession(r, req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.analysis.Salary(r.Context(), sess, req.Location))
}

// careerRoadmapHandler answers a career question and records the turn in
// the session history.
func (s *Server) careerRoadmapHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	sess, ok := s.sessionFromJSON(w, r, &req, func() string { return req.SessionID })
	if !ok {
		return
	}

	reply, turn, err := s.analysis.Chat(r.Context(), sess, req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.AppendTurn(sess.ID, turn); err != nil {
		s.Logger.LogError(err, "Failed to record chat turn", "session_id", sess.ID)
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// normalizeHandler returns the display projection of a raw AI string.
func (s *Server) normalizeHandler(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Kind == "salary" {
		s.writeJSON(w, http.StatusOK, normalize.SalaryText(req.Text))
		return
	}
	s.writeJSON(w, http.StatusOK, normalize.Text(req.Text))
}

// scoreHandler scores supplied texts without a session.
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.analysis.Scorer().Score(req.ResumeText, req.JobDescription)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// sessionFromJSON parses the body into req and loads the session it names.
// It writes the error response itself and reports whether to continue.
func (s *Server) sessionFromJSON(w http.ResponseWriter, r *http.Request, req any, bodyID func() string) (types.SessionContext, bool) {
	if err := parseJSONRequest(r, req); err != nil {
		s.writeError(w, r, err)
		return types.SessionContext{}, false
	}
	sess, err := s.lookupSession(r, bodyID())
	if err != nil {
		s.writeError(w, r, err)
		return types.SessionContext{}, false
	}
	return sess, true
}

func (s *Server) lookupSession(r *http.Request, bodyID string) (types.SessionContext, error) {
	id := sessionID(r, bodyID)
	if id == "" {
		return types.SessionContext{}, missingSession()
	}
	return s.sessions.Get(id)
}

// dropSession deletes a replaced session; an unknown id is ignored.
func (s *Server) dropSession(r *http.Request, id string) {
	if _, path, err := s.sessions.Delete(id); err == nil {
		s.removeUpload(path)
		s.observability.RecordSessionEvent(r.Context(), observability.SessionDeleted)
	}
}

func (s *Server) removeUpload(path string) {
	if err := s.analysis.Ingestor().Remove(path); err != nil {
		s.Logger.LogError(err, "Failed to remove stored upload", "path", path)
	}
}

func missingSession() error {
	return resumatchErrors.NewInsufficientInputError("sessionId", "Upload a resume first")
}
