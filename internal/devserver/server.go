// Package devserver is an in-memory implementation of the chat backend REST
// API, used for local development and tests.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ai-charchat-go/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server holds all backend state in memory.
type Server struct {
	mu         sync.Mutex
	nextID     int
	users      map[models.ID]*models.User
	characters map[models.ID]*models.Character
	sessions   map[models.ID]*models.ChatSession
	messages   map[models.ID][]*models.Message

	aiStatus string
	now      func() time.Time
	logger   *logrus.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithAIStatus sets the status reported by the AI status endpoints.
func WithAIStatus(status string) Option {
	return func(s *Server) { s.aiStatus = status }
}

func New(logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		users:      make(map[models.ID]*models.User),
		characters: make(map[models.ID]*models.Character),
		sessions:   make(map[models.ID]*models.ChatSession),
		messages:   make(map[models.ID][]*models.Message),
		aiStatus:   "ok",
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router serving /api.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.status(func() string { return "ok" })).Methods(http.MethodGet)
	api.HandleFunc("/ai/status", s.status(s.currentAIStatus)).Methods(http.MethodGet)
	api.HandleFunc("/openai/status", s.status(s.currentAIStatus)).Methods(http.MethodGet)
	api.HandleFunc("/test-character", s.testCharacter).Methods(http.MethodPost)

	api.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", s.getUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.updateUser).Methods(http.MethodPatch)

	api.HandleFunc("/characters", s.createCharacter).Methods(http.MethodPost)
	api.HandleFunc("/characters", s.listCharacters).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}", s.getCharacter).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}", s.updateCharacter).Methods(http.MethodPatch)
	api.HandleFunc("/characters/{id}", s.deleteCharacter).Methods(http.MethodDelete)

	api.HandleFunc("/chat-sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/chat-sessions", s.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/chat-sessions/{id}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/chat-sessions/{id}", s.deleteSession).Methods(http.MethodDelete)

	api.HandleFunc("/messages", s.createMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages/read", s.markRead).Methods(http.MethodPost)

	router.Use(s.logRequests)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return router
}

// SetAIStatus changes the status reported by the AI status endpoints.
func (s *Server) SetAIStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiStatus = status
}

// SeedUser stores user and returns it with an id assigned when missing.
func (s *Server) SeedUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = s.newID()
	}
	s.users[user.ID] = &user
	return user
}

// SeedCharacter stores character and returns it with an id assigned when
// missing.
func (s *Server) SeedCharacter(character models.Character) models.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	if character.ID == "" {
		character.ID = s.newID()
	}
	if character.CreatedAt.IsZero() {
		character.CreatedAt = models.At(s.now())
	}
	s.characters[character.ID] = &character
	return character
}

// CharacterCount returns the number of stored characters.
func (s *Server) CharacterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.characters)
}

func (s *Server) newID() models.ID {
	s.nextID++
	return models.ID(strconv.Itoa(s.nextID))
}

func (s *Server) currentAIStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiStatus
}

func (s *Server) status(get func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := get()
		resp := models.Status{Status: status}
		if status != "ok" {
			resp.Message = "AI service unavailable"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) testCharacter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Character   models.Character `json:"character"`
		UserMessage string           `json:"userMessage"`
	}
	if !decode(w, r, &req) {
		return
	}
	if s.currentAIStatus() != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, models.CharacterReply{Success: false, Error: "AI service unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, models.CharacterReply{
		Success:  true,
		Response: cannedReply(&req.Character, req.UserMessage),
	})
}

// cannedReply builds a deterministic in-character answer.
func cannedReply(character *models.Character, message string) string {
	name := character.Name
	if name == "" {
		name = "Character"
	}
	message = strings.TrimSpace(message)
	if strings.HasPrefix(message, "*") && strings.HasSuffix(message, "*") {
		return fmt.Sprintf("*%s smiles back*", name)
	}
	return fmt.Sprintf("%s: You said \"%s\". Tell me more!", name, message)
}

// Users

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
	}
	user := &models.User{ID: s.newID(), Email: req.Email, Name: req.Name}
	s.users[user.ID] = user
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch models.User
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r)
	user, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	patch.ID = id
	if patch.Email == "" {
		patch.Email = user.Email
	}
	s.users[id] = &patch
	writeJSON(w, http.StatusOK, &patch)
}

// Characters

func (s *Server) createCharacter(w http.ResponseWriter, r *http.Request) {
	var character models.Character
	if !decode(w, r, &character) {
		return
	}
	if strings.TrimSpace(character.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	character.ID = s.newID()
	character.CreatedAt = models.At(s.now())
	s.characters[character.ID] = &character
	writeJSON(w, http.StatusCreated, &character)
}

func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	creatorID := models.ID(r.URL.Query().Get("creatorId"))
	publicOnly := r.URL.Query().Get("isPublic") == "true"

	s.mu.Lock()
	result := make([]models.Character, 0, len(s.characters))
	for _, c := range s.characters {
		if creatorID != "" && c.CreatorID != creatorID {
			continue
		}
		if publicOnly && !c.IsPublic {
			continue
		}
		result = append(result, *c)
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return lessID(result[i].ID, result[j].ID) })
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getCharacter(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	character, ok := s.characters[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Character not found")
		return
	}
	writeJSON(w, http.StatusOK, character)
}

func (s *Server) updateCharacter(w http.ResponseWriter, r *http.Request) {
	var patch models.Character
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r)
	existing, ok := s.characters[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Character not found")
		return
	}
	patch.ID = id
	patch.CreatedAt = existing.CreatedAt
	if patch.CreatorID == "" {
		patch.CreatorID = existing.CreatorID
	}
	s.characters[id] = &patch
	writeJSON(w, http.StatusOK, &patch)
}

func (s *Server) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r)
	if _, ok := s.characters[id]; !ok {
		writeError(w, http.StatusNotFound, "Character not found")
		return
	}
	delete(s.characters, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Chat sessions

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var session models.ChatSession
	if !decode(w, r, &session) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[session.CharacterID]; !ok {
		writeError(w, http.StatusBadRequest, "Character not found")
		return
	}
	session.ID = s.newID()
	session.UpdatedAt = models.At(s.now())
	s.sessions[session.ID] = &session
	writeJSON(w, http.StatusCreated, &session)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	userID := models.ID(r.URL.Query().Get("userId"))

	s.mu.Lock()
	result := make([]models.ChatSession, 0)
	for _, session := range s.sessions {
		if session.UserID == userID {
			result = append(result, *session)
		}
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return lessID(result[i].ID, result[j].ID) })
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r)
	if _, ok := s.sessions[id]; !ok {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Messages

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var message models.Message
	if !decode(w, r, &message) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[message.SessionID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Chat session not found")
		return
	}
	message.ID = s.newID()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = models.At(s.now())
	}
	s.messages[session.ID] = append(s.messages[session.ID], &message)

	session.LastMessage = message.Content
	session.UpdatedAt = message.CreatedAt
	if message.IsCharacter {
		session.UnreadCount++
	}
	writeJSON(w, http.StatusCreated, &message)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := models.ID(r.URL.Query().Get("sessionId"))

	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Message, 0, len(s.messages[sessionID]))
	for _, m := range s.messages[sessionID] {
		result = append(result, *m)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID models.ID `json:"sessionId"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[req.SessionID]; ok {
		session.UnreadCount = 0
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("Handled request")
	})
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b models.ID) bool {
	x, errA := strconv.Atoi(a.String())
	y, errB := strconv.Atoi(b.String())
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}

func pathID(r *http.Request) models.ID {
	return models.ID(mux.Vars(r)["id"])
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
