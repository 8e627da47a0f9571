package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/edumeet/internal/models"
)

const (
	restPath = "/rest/v1/"
	authPath = "/auth/v1/"

	singleObjectMediaType = "application/vnd.pgrst.object+json"
	noRowsCode            = "PGRST116"
)

// RESTConfig configures the hosted REST provider.
type RESTConfig struct {
	URL        string
	AnonKey    string
	HTTPClient *http.Client
	Observer   Observer
}

// RESTClient talks to a PostgREST/GoTrue style hosted backend.
type RESTClient struct {
	baseURL  string
	anonKey  string
	http     *http.Client
	observer Observer
	auth     *restAuth
}

// NewRESTClient validates the configuration and builds a client with its own session slot.
func NewRESTClient(cfg RESTConfig) (*RESTClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend: REST provider URL missing")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: invalid REST provider URL %q", cfg.URL)
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("backend: REST provider anon key missing")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &RESTClient{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		anonKey:  cfg.AnonKey,
		http:     httpClient,
		observer: cfg.Observer,
	}
	c.auth = &restAuth{client: c}
	return c, nil
}

// Auth exposes the session API.
func (c *RESTClient) Auth() AuthClient {
	return c.auth
}

// Select runs a filtered read.
func (c *RESTClient) Select(ctx context.Context, table string, q Query, dest interface{}) (err error) {
	start := time.Now()
	defer func() { observe(c.observer, "select", table, start, err) }()

	if err := validIdentifier(table); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return err
	}

	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	} else {
		params.Set("select", "*")
	}
	encodeFilters(params, q.Filters)
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	headers := map[string]string{}
	if q.Single {
		headers["Accept"] = singleObjectMediaType
	}

	body, err := c.do(ctx, http.MethodGet, restPath+table+"?"+params.Encode(), nil, headers)
	if err != nil {
		var perr *ProviderError
		if q.Single && asProviderError(err, &perr) && (perr.Code == noRowsCode || perr.Status == http.StatusNotAcceptable) {
			return ErrNoRows
		}
		return err
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(body, dest)
}

// Insert writes one row and decodes the stored representation into dest.
func (c *RESTClient) Insert(ctx context.Context, table string, values map[string]interface{}, dest interface{}) (err error) {
	start := time.Now()
	defer func() { observe(c.observer, "insert", table, start, err) }()

	if err := validIdentifier(table); err != nil {
		return err
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("backend: encode insert: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, restPath+table, payload, map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return err
	}
	return decodeFirst(body, dest)
}

// Update patches the rows matched by filters and decodes the first updated row into dest.
func (c *RESTClient) Update(ctx context.Context, table string, filters []Filter, patch map[string]interface{}, dest interface{}) (err error) {
	start := time.Now()
	defer func() { observe(c.observer, "update", table, start, err) }()

	if err := validIdentifier(table); err != nil {
		return err
	}
	if len(filters) == 0 {
		return fmt.Errorf("backend: update on %s without filters", table)
	}
	if err := validateFilters(filters); err != nil {
		return err
	}
	params := url.Values{}
	encodeFilters(params, filters)
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("backend: encode update: %w", err)
	}
	body, err := c.do(ctx, http.MethodPatch, restPath+table+"?"+params.Encode(), payload, map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return err
	}
	return decodeFirst(body, dest)
}

func (c *RESTClient) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseProviderError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *RESTClient) bearer() string {
	if token := c.auth.token(); token != "" {
		return token
	}
	return c.anonKey
}

func encodeFilters(params url.Values, filters []Filter) {
	for _, f := range filters {
		params.Add(f.Column, string(f.Op)+"."+formatValue(f.Value))
	}
}

func decodeFirst(body []byte, dest interface{}) error {
	if dest == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	if trimmed[0] != '[' {
		return json.Unmarshal(trimmed, dest)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return fmt.Errorf("backend: decode rows: %w", err)
	}
	if len(rows) == 0 {
		return ErrNoRows
	}
	return json.Unmarshal(rows[0], dest)
}

func parseProviderError(status int, body []byte) error {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Code             string `json:"code"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &payload)

	message := firstNonEmpty(payload.Message, payload.Msg, payload.ErrorDescription, payload.Error, strings.TrimSpace(string(body)), http.StatusText(status))
	return &ProviderError{Status: status, Code: payload.Code, Message: message}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func asProviderError(err error, target **ProviderError) bool {
	perr, ok := err.(*ProviderError)
	if ok {
		*target = perr
	}
	return ok
}

// restAuth implements the GoTrue-style session API and keeps the session for one workspace.
type restAuth struct {
	client     *RESTClient
	mu         sync.RWMutex
	session    *models.Session
	dispatcher authDispatcher
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         models.User `json:"user"`
}

func (a *restAuth) token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

func (a *restAuth) SetSession(accessToken string) {
	accessToken = strings.TrimSpace(accessToken)
	a.mu.Lock()
	defer a.mu.Unlock()
	if accessToken == "" {
		a.session = nil
		return
	}
	a.session = &models.Session{AccessToken: accessToken, ExpiresAt: unverifiedExpiry(accessToken)}
}

func (a *restAuth) GetSession(ctx context.Context) (*models.Session, error) {
	a.mu.RLock()
	current := a.session
	a.mu.RUnlock()
	if current == nil {
		return nil, nil
	}
	if !current.ExpiresAt.IsZero() && time.Now().After(current.ExpiresAt) {
		a.clear()
		return nil, nil
	}
	if current.User.ID != "" {
		copied := *current
		return &copied, nil
	}

	body, err := a.client.do(ctx, http.MethodGet, authPath+"user", nil, nil)
	if err != nil {
		var perr *ProviderError
		if asProviderError(err, &perr) && (perr.Status == http.StatusUnauthorized || perr.Status == http.StatusForbidden) {
			a.clear()
			return nil, nil
		}
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("backend: decode user: %w", err)
	}

	a.mu.Lock()
	if a.session != nil && a.session.AccessToken == current.AccessToken {
		a.session.User = user
	}
	session := &models.Session{AccessToken: current.AccessToken, ExpiresAt: current.ExpiresAt, User: user}
	a.mu.Unlock()
	return session, nil
}

func (a *restAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	body, err := a.client.do(ctx, http.MethodPost, authPath+"token?grant_type=password", payload, nil)
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("backend: decode token: %w", err)
	}
	session := &models.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tokenExpiry(tok),
		User:         tok.User,
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	copied := *session
	a.dispatcher.emit(models.AuthEventSignedIn, &copied)
	return session, nil
}

func (a *restAuth) SignOut(ctx context.Context) error {
	var err error
	if a.token() != "" {
		_, err = a.client.do(ctx, http.MethodPost, authPath+"logout", nil, nil)
		var perr *ProviderError
		if asProviderError(err, &perr) && perr.Status == http.StatusUnauthorized {
			err = nil
		}
	}
	a.clear()
	a.dispatcher.emit(models.AuthEventSignedOut, nil)
	return err
}

func (a *restAuth) UpdateUser(ctx context.Context, metadata models.UserMetadata) (*models.User, error) {
	if a.token() == "" {
		return nil, ErrNoSession
	}
	payload, err := json.Marshal(map[string]interface{}{"data": metadata})
	if err != nil {
		return nil, err
	}
	body, err := a.client.do(ctx, http.MethodPut, authPath+"user", payload, nil)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("backend: decode user: %w", err)
	}

	a.mu.Lock()
	var snapshot *models.Session
	if a.session != nil {
		a.session.User = user
		copied := *a.session
		snapshot = &copied
	}
	a.mu.Unlock()

	a.dispatcher.emit(models.AuthEventUserUpdated, snapshot)
	return &user, nil
}

func (a *restAuth) OnAuthStateChange(handler AuthStateHandler) func() {
	return a.dispatcher.subscribe(handler)
}

func (a *restAuth) clear() {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
}

func tokenExpiry(tok tokenResponse) time.Time {
	if tok.ExpiresAt > 0 {
		return time.Unix(tok.ExpiresAt, 0).UTC()
	}
	if tok.ExpiresIn > 0 {
		return time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return unverifiedExpiry(tok.AccessToken)
}

// unverifiedExpiry reads exp from a provider token. The provider remains the verifier.
func unverifiedExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
