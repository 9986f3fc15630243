package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/request"
	"github.com/papercomputeco/mathai/pkg/stream"
)

// ErrNoToken is returned when the backend accepted credentials but sent no
// access token back.
var ErrNoToken = errors.New("no access token in response")

// Login authenticates against /auth and stores the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (*api.AuthResponse, error) {
	return c.authenticate(ctx, request.New(api.Auth, http.MethodPost, api.LoginRequest{
		Username: username,
		Password: password,
	}))
}

// Register creates an account through /register and stores the returned
// token.
func (c *Client) Register(ctx context.Context, username, password, email string) (*api.AuthResponse, error) {
	return c.authenticate(ctx, request.New(api.Register, http.MethodPost, api.RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	}))
}

func (c *Client) authenticate(ctx context.Context, call request.Call) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrNoToken
	}
	if err := c.tokens.SetToken(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("storing token: %w", err)
	}

	c.logger.Debug("authenticated", zap.String("path", call.Path), zap.ByteString("user_id", resp.UserID))
	return &resp, nil
}

// Logout forgets the stored token. The backend keeps no session state.
func (c *Client) Logout() error {
	return c.tokens.ClearToken()
}

// LoggedIn reports whether a token is present.
func (c *Client) LoggedIn() bool {
	return c.tokens.Token() != ""
}

// Complete streams a chat completion for req through cb.
func (c *Client) Complete(ctx context.Context, req api.ChatRequest, cb stream.Callbacks, opts ...stream.Option) error {
	return c.Stream(ctx, request.New(api.Generate, http.MethodPost, req), cb, opts...)
}

// RelatedQuestions asks the backend for follow-up questions to question.
func (c *Client) RelatedQuestions(ctx context.Context, question string) ([]string, error) {
	var resp api.RelatedQuestionsResponse
	call := request.New(api.RelatedQuestions, http.MethodPost, api.RelatedQuestionsRequest{Question: question})
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("related questions: %s", resp.Message)
	}
	return resp.RelatedQuestions, nil
}

// ReferenceFiles looks up knowledge base documents matching query.
func (c *Client) ReferenceFiles(ctx context.Context, query string) ([]api.ReferenceFile, error) {
	var resp api.ReferenceFilesResponse
	call := request.New(api.ReferenceFiles, http.MethodGet, api.ReferenceFilesRequest{Query: query})
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("reference files: %s", resp.Message)
	}
	return resp.ReferenceFiles, nil
}

// Followups are the suggestions shown after an answer.
type Followups struct {
	Questions []string
	Files     []api.ReferenceFile
}

// Followups fetches related questions and reference files concurrently. The
// first failure cancels the other lookup.
func (c *Client) Followups(ctx context.Context, question string) (*Followups, error) {
	var out Followups
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		qs, err := c.RelatedQuestions(gctx, question)
		if err != nil {
			return err
		}
		out.Questions = qs
		return nil
	})

	g.Go(func() error {
		files, err := c.ReferenceFiles(gctx, question)
		if err != nil {
			return err
		}
		out.Files = files
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations lists the user's stored conversations.
func (c *Client) Conversations(ctx context.Context) ([]api.Conversation, error) {
	var convs []api.Conversation
	if err := c.transport.DoJSON(ctx, request.New(api.Conversations, http.MethodGet, nil), &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// CreateConversation starts a new conversation and returns its ID.
func (c *Client) CreateConversation(ctx context.Context, title string) (int, error) {
	var resp api.CreateConversationResponse
	call := request.New(api.Conversations, http.MethodPost, api.CreateConversationRequest{Title: title})
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return 0, err
	}
	return resp.ConversationID, nil
}

// ConversationMessages returns the messages of conversation id, oldest first.
func (c *Client) ConversationMessages(ctx context.Context, id int) ([]api.ConversationMessage, error) {
	var resp api.ConversationMessagesResponse
	if err := c.transport.DoJSON(ctx, request.New(conversationPath(id, "messages"), http.MethodGet, nil), &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// AppendMessage adds a message to conversation id.
func (c *Client) AppendMessage(ctx context.Context, id int, role, content string) error {
	_, err := c.transport.Do(ctx, request.New(conversationPath(id, "messages"), http.MethodPost, api.MessageCreateRequest{
		Role:    role,
		Content: content,
	}))
	return err
}

// RenameConversation sets the title of conversation id.
func (c *Client) RenameConversation(ctx context.Context, id int, title string) error {
	call := request.New(conversationPath(id), http.MethodPatch, api.UpdateConversationRequest{Title: title})
	return c.doStatus(ctx, call, "renaming conversation")
}

// DeleteConversation removes conversation id and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id int) error {
	return c.doStatus(ctx, request.New(conversationPath(id), http.MethodDelete, nil), "deleting conversation")
}

// doStatus sends call and turns an in-band {"status": "error"} into an error.
func (c *Client) doStatus(ctx context.Context, call request.Call, op string) error {
	var resp api.StatusResponse
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return err
	}
	if resp.Status == "error" {
		return fmt.Errorf("%s: %s", op, resp.Message)
	}
	return nil
}

func conversationPath(id int, rest ...string) string {
	return strings.Join(append([]string{api.Conversations, strconv.Itoa(id)}, rest...), "/")
}

// SaveQuestion records a question, optionally attached to a conversation, and
// returns the backend's question ID.
func (c *Client) SaveQuestion(ctx context.Context, content string, conversationID *int) (string, error) {
	var resp api.QuestionResponse
	call := request.New(api.SaveQuestion, http.MethodPost, api.QuestionRequest{
		Content:        content,
		ConversationID: conversationID,
	})
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return "", err
	}
	return resp.QuestionID, nil
}

// ManageAPIKey runs an API key action ("create" or "revoke") and returns the
// raw response.
func (c *Client) ManageAPIKey(ctx context.Context, action, key string) (map[string]any, error) {
	var resp map[string]any
	call := request.New(api.APIKeys, http.MethodPost, api.APIKeyAction{Action: action, Key: key})
	if err := c.transport.DoJSON(ctx, call, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAPIKeys returns the account's API keys, newest first.
func (c *Client) ListAPIKeys(ctx context.Context) ([]api.APIKey, error) {
	var resp api.APIKeysResponse
	if err := c.transport.DoJSON(ctx, request.New(api.APIKeys, http.MethodGet, nil), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Download fetches the knowledge base file at filePath and copies it to w. It
// returns the number of bytes written.
func (c *Client) Download(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	call := request.New(api.Download, http.MethodGet, map[string]string{"file_path": filePath})
	n, err := c.transport.Fetch(ctx, call, w)
	if err != nil {
		return n, err
	}
	c.logger.Debug("downloaded file", zap.String("file_path", filePath), zap.Int64("bytes", n))
	return n, nil
}
