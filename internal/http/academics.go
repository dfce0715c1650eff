package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campus/identity/internal/model"
	"campus/identity/internal/repository"
)

type courseSummary struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	TeacherID string `json:"teacherId"`
}

type assignmentSummary struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	DueAt    string `json:"dueAt"`
}

type gradeSummary struct {
	CourseID    string  `json:"courseId"`
	CourseCode  string  `json:"courseCode"`
	CourseTitle string  `json:"courseTitle"`
	Grade       *string `json:"grade"`
}

func (s *Server) handleStudentCourses(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	courses, err := s.store.ListCoursesByStudent(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapCourses(courses))
}

func (s *Server) handleStudentAssignments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	if _, err := s.store.GetCourse(r.Context(), courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	enrolled, err := s.store.IsEnrolled(r.Context(), courseID, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !enrolled {
		writeError(w, http.StatusForbidden, "not_enrolled")
		return
	}

	assignments, err := s.store.ListAssignmentsByCourse(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapAssignments(assignments))
}

func (s *Server) handleStudentGrades(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	grades, err := s.store.ListGrades(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]gradeSummary, 0, len(grades))
	for _, entry := range grades {
		resp = append(resp, gradeSummary{
			CourseID:    entry.CourseID,
			CourseCode:  entry.CourseCode,
			CourseTitle: entry.CourseTitle,
			Grade:       entry.Grade,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTeacherCourses(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	courses, err := s.store.ListCoursesByTeacher(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapCourses(courses))
}

type createAssignmentRequest struct {
	Title string `json:"title"`
	DueAt string `json:"dueAt"`
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	var req createAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.DueAt == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_due_date")
		return
	}

	course, err := s.store.GetCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if course.TeacherID != claims.UserID {
		writeError(w, http.StatusForbidden, "not_course_teacher")
		return
	}

	assignment := model.Assignment{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Title:     req.Title,
		DueAt:     dueAt.UTC(),
		PostedBy:  claims.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAssignment(r.Context(), assignment); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, assignmentSummary{
		ID:       assignment.ID,
		CourseID: assignment.CourseID,
		Title:    assignment.Title,
		DueAt:    assignment.DueAt.Format(time.RFC3339),
	})
}

type createCourseRequest struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	TeacherID string `json:"teacherId"`
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Title = strings.TrimSpace(req.Title)
	if req.Code == "" || req.Title == "" || req.TeacherID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	teacher, err := s.store.GetAccountByID(r.Context(), req.TeacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "teacher_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if teacher.Role != model.RoleTeacher {
		writeError(w, http.StatusBadRequest, "not_a_teacher")
		return
	}

	course := model.Course{
		ID:        uuid.NewString(),
		Code:      req.Code,
		Title:     req.Title,
		TeacherID: teacher.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, courseSummary{
		ID:        course.ID,
		Code:      course.Code,
		Title:     course.Title,
		TeacherID: course.TeacherID,
	})
}

type enrollRequest struct {
	StudentID string `json:"studentId"`
}

func (s *Server) handleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	if _, err := s.store.GetCourse(r.Context(), courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	student, err := s.store.GetAccountByID(r.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if student.Role != model.RoleStudent {
		writeError(w, http.StatusBadRequest, "not_a_student")
		return
	}

	enrollment := model.Enrollment{
		CourseID:  courseID,
		StudentID: student.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.EnrollStudent(r.Context(), enrollment); err != nil {
		if errors.Is(err, repository.ErrAlreadyEnrolled) {
			writeError(w, http.StatusBadRequest, "already_enrolled")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "enrolled"})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var role model.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := model.ParseRole(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
		role = parsed
	}

	accounts, err := s.store.ListAccounts(r.Context(), role, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]accountSummary, 0, len(accounts))
	for _, account := range accounts {
		resp = append(resp, summarize(account))
	}
	writeJSON(w, http.StatusOK, resp)
}

func mapCourses(courses []model.Course) []courseSummary {
	resp := make([]courseSummary, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, courseSummary{
			ID:        course.ID,
			Code:      course.Code,
			Title:     course.Title,
			TeacherID: course.TeacherID,
		})
	}
	return resp
}

func mapAssignments(assignments []model.Assignment) []assignmentSummary {
	resp := make([]assignmentSummary, 0, len(assignments))
	for _, assignment := range assignments {
		resp = append(resp, assignmentSummary{
			ID:       assignment.ID,
			CourseID: assignment.CourseID,
			Title:    assignment.Title,
			DueAt:    assignment.DueAt.Format(time.RFC3339),
		})
	}
	return resp
}
