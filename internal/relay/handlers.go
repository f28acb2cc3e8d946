package relay

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/crypto"
	"github.com/piyushdolas8/skillswap/internal/relay/middleware"
	"github.com/piyushdolas8/skillswap/internal/storage"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

const defaultMaxUploadBytes = 10 << 20

type handlers struct {
	rooms          *Rooms
	tokens         *crypto.TokenManager
	uploader       storage.Uploader
	maxUploadBytes int64
	metrics        *Metrics
	now            func() time.Time
}

func (h *handlers) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "topics": h.rooms.Topics()})
}

// TokenRequest asks for a relay token.
type TokenRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	// Topic restricts the token to one topic when set.
	Topic string `json:"topic"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	Token string `json:"token"`
}

func (h *handlers) issueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = uuid.NewString()
	}
	token, err := h.tokens.Issue(req.UserID, req.Name, req.Topic)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// TopicStatus reports a topic's occupancy.
type TopicStatus struct {
	Topic     string `json:"topic"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
	Full      bool   `json:"full"`
}

func (h *handlers) topic(c *gin.Context) {
	topic := c.Param("id")
	n := h.rooms.Occupancy(topic)
	c.JSON(http.StatusOK, TopicStatus{
		Topic:     topic,
		Occupancy: n,
		Capacity:  channel.MaxSubscribers,
		Full:      n >= channel.MaxSubscribers,
	})
}

// uploadFile accepts multipart field "file" plus form field "topic" and
// answers with the SharedFile clients announce on the topic. A client may
// pick the object key with form field "key" as long as it lies under the
// topic's directory.
func (h *handlers) uploadFile(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return
	}
	claims, _ := middleware.GetClaims(c)

	limit := h.maxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))

	topic := strings.TrimSpace(c.PostForm("topic"))
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing topic"})
		return
	}
	if claims != nil && !claims.AllowsTopic(topic) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is not valid for this topic"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, limit+1)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	if int64(buf.Len()) > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	if buf.Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": storage.ErrEmptyObject.Error()})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(buf.Bytes())
	}

	id := uuid.NewString()
	key := storage.ObjectKey(topic, id, header.Filename)
	if requested := strings.TrimSpace(c.PostForm("key")); requested != "" {
		keyTopic, keyID, keyName, ok := storage.ParseObjectKey(requested)
		if !ok || storage.ObjectKey(topic, keyID, keyName) != requested || keyTopic == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
			return
		}
		id, key = keyID, requested
	}
	url, err := h.uploader.Upload(c.Request.Context(), key, buf.Bytes(), contentType)
	if err != nil {
		logger.Warnf("relay: upload %s failed: %v", key, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	h.metrics.uploaded(buf.Len())

	uploader := ""
	if claims != nil {
		uploader = claims.Name
	}
	c.JSON(http.StatusCreated, wire.SharedFile{
		ID:           id,
		Name:         header.Filename,
		URL:          url,
		SizeBytes:    int64(buf.Len()),
		UploaderName: uploader,
		CreatedAt:    h.clock().UnixMilli(),
	})
}
