package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

const (
	chatPath            = "/api/chat"
	chatImagePath       = "/api/chat/image"
	recommendationsPath = "/api/recommendations"
	healthPath          = "/api/health"
)

// HTTPClient implements Client against the chat backend's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the backend at baseURL. A nil hc uses
// http.DefaultClient; a nil logger discards output.
func NewHTTPClient(baseURL string, hc *http.Client, logger logging.Logger) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger.With("component", "chatapi"),
	}
}

type chatRequest struct {
	Message             string               `json:"message"`
	ConversationHistory []models.HistoryItem `json:"conversationHistory"`
}

func (c *HTTPClient) SendMessage(ctx context.Context, text string, history []models.HistoryItem) (*models.ChatReply, error) {
	if history == nil {
		history = []models.HistoryItem{}
	}
	c.logger.Debug(ctx, "sending message", "chars", len(text), "history", len(history))

	req, err := netx.NewJSONRequest(ctx, http.MethodPost, c.baseURL+chatPath, chatRequest{Message: text, ConversationHistory: history})
	if err != nil {
		return nil, err
	}

	var reply models.ChatReply
	if err := netx.Do(c.http, req, &reply); err != nil {
		return nil, c.mapError(err)
	}
	return &reply, nil
}

func (c *HTTPClient) SendMessageWithImage(ctx context.Context, text string, image *models.Image, history []models.HistoryItem) (*models.ChatReply, error) {
	if image == nil {
		return c.SendMessage(ctx, text, history)
	}
	if history == nil {
		history = []models.HistoryItem{}
	}
	c.logger.Debug(ctx, "sending image message", "chars", len(text), "image_bytes", len(image.Data), "history", len(history))

	body, contentType, err := encodeImageForm(text, image, history)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatImagePath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var reply models.ChatReply
	if err := netx.Do(c.http, req, &reply); err != nil {
		return nil, c.mapError(err)
	}
	return &reply, nil
}

func encodeImageForm(text string, image *models.Image, history []models.HistoryItem) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("message", text); err != nil {
		return nil, "", err
	}

	name := image.Name
	if name == "" {
		name = "image"
	}
	ct := image.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, "", err
	}

	hist, err := json.Marshal(history)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("conversationHistory", string(hist)); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type recommendationsResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

func (c *HTTPClient) GetRecommendations(ctx context.Context, q RecommendationQuery) ([]models.Recommendation, error) {
	v := url.Values{}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if q.Difficulty != "" {
		v.Set("difficulty", q.Difficulty)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	u := c.baseURL + recommendationsPath
	if len(v) > 0 {
		u += "?" + v.Encode()
	}

	req, err := netx.NewJSONRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var resp recommendationsResponse
	if err := netx.Do(c.http, req, &resp); err != nil {
		return nil, c.mapError(err)
	}
	return resp.Recommendations, nil
}

func (c *HTTPClient) HealthCheck(ctx context.Context) (*models.Health, error) {
	req, err := netx.NewJSONRequest(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, err
	}

	var h models.Health
	if err := netx.Do(c.http, req, &h); err != nil {
		return nil, c.mapError(err)
	}
	return &h, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *HTTPClient) mapError(err error) error {
	if err == nil {
		return nil
	}

	var te *netx.TransportError
	if errors.As(err, &te) {
		return &TransportError{Err: te.Err}
	}

	var se *netx.StatusError
	if errors.As(err, &se) {
		he := &HTTPError{Status: se.Code}
		var body errorBody
		if json.Unmarshal(se.Body, &body) == nil {
			he.Message = body.Message
			he.ErrorText = body.Error
		}
		return he
	}

	return fmt.Errorf("chat api: %w", err)
}
