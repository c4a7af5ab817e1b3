package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type saveRequest struct {
	MealPlan  json.RawMessage `json:"mealPlan"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
}

type skipRequest struct {
	Skipped bool `json:"skipped"`
}

type shoppingRequest struct {
	Ingredients []string `json:"ingredients"`
}

type successResponse struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := s.svc.ListMeals(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		s.writeAppError(w, err, "Failed to fetch meals")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid meal plan data")
		return
	}

	trimmed := bytes.TrimSpace(req.MealPlan)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		writeError(w, http.StatusBadRequest, "Invalid meal plan data")
		return
	}

	var plan []meals.Meal
	if err := json.Unmarshal(trimmed, &plan); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid meal plan data")
		return
	}

	count, err := s.svc.SavePlan(r.Context(), plan, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error("save meal plan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save meal plan")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Count: &count})
}

func (s *Server) handleSkipMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := mealID(w, r)
	if !ok {
		return
	}

	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.svc.SetSkipped(r.Context(), id, req.Skipped); err != nil {
		s.writeAppError(w, err, "Failed to update meal")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := mealID(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeleteMeal(r.Context(), id); err != nil {
		s.writeAppError(w, err, "Failed to delete meal")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req planner.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plan request")
		return
	}

	count, err := s.svc.GeneratePlan(r.Context(), req)
	if err != nil {
		fallback := "Failed to save meal plan"
		if apperr.Is(err, apperr.CodeExternalServiceError) {
			fallback = "Failed to generate meal plan"
		}
		s.writeAppError(w, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Count: &count})
}

func (s *Server) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	var req shoppingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	list, err := s.svc.GenerateShoppingList(r.Context(), req.Ingredients)
	if err != nil {
		s.writeAppError(w, err, "Failed to generate shopping list")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func mealID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid meal id")
		return 0, false
	}
	return id, true
}

// writeAppError answers with the status of err. Validation messages are
// passed through; everything else is replaced by fallback.
func (s *Server) writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperr.StatusCode(err)
	message := fallback

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Code == apperr.CodeValidationFailed {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(fallback, zap.Error(err))
	}
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
