package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"rag-chat/internal/models"
	"rag-chat/internal/parser"
	"rag-chat/internal/rag"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Question            string     `json:"question"`
	History             [][]string `json:"history"`
	ForceInternetSearch bool       `json:"force_internet_search"`
}

type chatResponse struct {
	Answer     string       `json:"answer"`
	AnswerHTML string       `json:"answer_html"`
	Route      models.Route `json:"route"`
}

type uploadResponse struct {
	Message string `json:"message"`
	Files   int    `json:"files"`
	Chunks  int    `json:"chunks"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "API is running"})
}

func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		badRequest(c, errors.New("no files uploaded"))
		return
	}

	docs := make([]parser.Document, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			serverError(c, err)
			return
		}
		docs = append(docs, parser.Document{Name: fh.Filename, Data: data})
	}

	chunks, err := s.session.BuildIndex(c.Request.Context(), docs)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{
		Message: fmt.Sprintf("Processed %d files into %d chunks.", len(docs), chunks),
		Files:   len(docs),
		Chunks:  chunks,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	s.chat(c, false)
}

func (s *Server) handleChatWithInternet(c *gin.Context) {
	s.chat(c, true)
}

func (s *Server) chat(c *gin.Context, allowForce bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	history, err := parseHistory(req.History)
	if err != nil {
		badRequest(c, err)
		return
	}

	force := allowForce && req.ForceInternetSearch
	res, err := s.session.Answer(c.Request.Context(), req.Question, history, force)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuestion) {
			badRequest(c, err)
			return
		}
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Answer:     res.Content,
		AnswerHTML: s.renderHTML(res.Content),
		Route:      res.Route,
	})
}

func (s *Server) handleAnalyzeImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("missing file: %w", err))
		return
	}
	data, err := readFile(fh)
	if err != nil {
		serverError(c, err)
		return
	}

	analysis, err := s.session.AnalyzeImage(c.Request.Context(), data, fh.Filename)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis, "filename": fh.Filename})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	if s.transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "transcription is not configured"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("missing file: %w", err))
		return
	}
	data, err := readFile(fh)
	if err != nil {
		serverError(c, err)
		return
	}

	ctx, cancel := withTimeout(c.Request.Context(), s.cfg.Timeouts.Transcription)
	defer cancel()
	text, err := s.transcriber.Transcribe(ctx, data, fh.Filename)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// parseHistory converts [role, text] pairs. Roles other than user and
// assistant are dropped.
func parseHistory(pairs [][]string) (models.History, error) {
	history := make(models.History, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("history entry %d must be a [role, content] pair", i)
		}
		role, ok := models.ParseRole(pair[0])
		if !ok {
			log.Debug().Str("role", pair[0]).Msg("Dropping history turn with unknown role")
			continue
		}
		history = append(history, models.Turn{Role: role, Text: pair[1]})
	}
	return history, nil
}

func (s *Server) renderHTML(md string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &buf); err != nil {
		log.Warn().Err(err).Msg("Failed to render markdown")
		return ""
	}
	return buf.String()
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// withTimeout applies d only when it is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}

func serverError(c *gin.Context, err error) {
	log.Error().Err(err).Str("request_id", GetRequestID(c)).Str("path", c.FullPath()).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}
