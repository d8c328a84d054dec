package handler

import (
	"log"
	"net/http"
	"strconv"

	"triviahome/internal/cache"
	"triviahome/internal/trivia"
)

// TriviaHandler exposes the upstream trivia API for lobby UIs
// (category pickers, question previews).
type TriviaHandler struct {
	client     *trivia.Client
	categories cache.CategoryCache
}

// NewTriviaHandler creates a new trivia handler.
func NewTriviaHandler(client *trivia.Client, categories cache.CategoryCache) *TriviaHandler {
	return &TriviaHandler{
		client:     client,
		categories: categories,
	}
}

// Categories handles GET /api/categories
func (h *TriviaHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.categories != nil {
		cached, err := h.categories.Get(r.Context())
		if err == nil && len(cached) > 0 {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	categories, err := h.client.FetchCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories from trivia API")
		return
	}

	if h.categories != nil {
		if err := h.categories.Set(r.Context(), categories); err != nil {
			log.Printf("caching categories: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Questions handles GET /api/questions
func (h *TriviaHandler) Questions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := trivia.FetchOptions{
		Difficulty: q.Get("difficulty"),
		Type:       q.Get("type"),
	}
	if amount, err := strconv.Atoi(q.Get("amount")); err == nil {
		opts.Amount = amount
	}
	if category := q.Get("category"); category != "" {
		opts.Categories = []string{category}
	}

	questions, err := h.client.FetchQuestions(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch questions from trivia API")
		return
	}
	writeJSON(w, http.StatusOK, questions)
}
