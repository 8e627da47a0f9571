package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edumeet/internal/models"
)

// Tables readable and writable through the generic data API. The users table is reachable only via auth.
var postgresTables = map[string]bool{
	"classes":     true,
	"assignments": true,
	"submissions": true,
	"enrollments": true,
}

var sqlOperators = map[Op]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// PostgresConfig configures the self-hosted provider.
type PostgresConfig struct {
	DB          *sqlx.DB
	JWTSecret   string
	JWTIssuer   string
	TokenExpiry time.Duration
	Observer    Observer
}

// PostgresClient serves the backend contract straight from PostgreSQL.
type PostgresClient struct {
	db       *sqlx.DB
	observer Observer
	auth     *postgresAuth
}

// NewPostgresClient builds a client with its own session slot on a shared pool.
func NewPostgresClient(cfg PostgresConfig) (*PostgresClient, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("backend: postgres provider needs a database handle")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("backend: postgres provider needs a JWT secret")
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = 24 * time.Hour
	}
	c := &PostgresClient{db: cfg.DB, observer: cfg.Observer}
	c.auth = &postgresAuth{
		db:     cfg.DB,
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		expiry: cfg.TokenExpiry,
		now:    time.Now,
	}
	return c, nil
}

// Auth exposes the session API.
func (c *PostgresClient) Auth() AuthClient {
	return c.auth
}

// Select runs a filtered read. A single-row query that matches nothing returns ErrNoRows.
func (c *PostgresClient) Select(ctx context.Context, table string, q Query, dest interface{}) (err error) {
	start := time.Now()
	defer func() { observe(c.observer, "select", table, start, err) }()

	query, args, err := buildSelect(table, q)
	if err != nil {
		return err
	}
	if q.Single {
		if err := c.db.GetContext(ctx, dest, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoRows
			}
			return providerError(err)
		}
		return nil
	}
	if err := c.db.SelectContext(ctx, dest, query, args...); err != nil {
		return providerError(err)
	}
	return nil
}

// Insert writes one row and scans the stored row into dest.
func (c *PostgresClient) Insert(ctx context.Context, table string, values map[string]interface{}, dest interface{}) (err error) {
	start := time.Now()
	defer func() { observe(c.observer, "insert", table, start, err) }()

	if _, ok := values["id"]; !ok {
		values = withValue(values, "id", uuid.NewString())
	}
	query, args, err := buildInsert(table, values)
	if err != nil {
		return err
	}
	if dest == nil {
		if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
			return providerError(err)
		}
		return nil
	}
	if err := c.db.GetContext(ctx, dest, query, args...); err != nil {
		return providerError(err)
	}
	return nil
}

// Update patches matching rows and scans the first updated row into dest.
func (c *PostgresClient) Update(ctx context.Context, table string, filters []Filter, patch map[string]interface{}, dest interface{}) (err error) {
	start := time.Now()
	defer func() { observe(c.observer, "update", table, start, err) }()

	query, args, err := buildUpdate(table, filters, patch)
	if err != nil {
		return err
	}
	if dest == nil {
		if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
			return providerError(err)
		}
		return nil
	}
	if err := c.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		return providerError(err)
	}
	return nil
}

func checkTable(table string) error {
	if !postgresTables[table] {
		return fmt.Errorf("backend: table %q is not exposed", table)
	}
	return nil
}

func buildSelect(table string, q Query) (string, []interface{}, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ", ")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", columns, table)

	where, args := buildWhere(q.Filters, nil)
	sb.WriteString(where)

	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts[i] = o.Column + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args, nil
}

func buildInsert(table string, values map[string]interface{}) (string, []interface{}, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("backend: insert into %s without values", table)
	}
	columns := sortedKeys(values)
	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		if err := validIdentifier(col); err != nil {
			return "", nil, err
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return query, args, nil
}

func buildUpdate(table string, filters []Filter, patch map[string]interface{}) (string, []interface{}, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("backend: update on %s without filters", table)
	}
	if len(patch) == 0 {
		return "", nil, fmt.Errorf("backend: update on %s without changes", table)
	}
	if err := validateFilters(filters); err != nil {
		return "", nil, err
	}
	columns := sortedKeys(patch)
	sets := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+len(filters))
	for i, col := range columns {
		if err := validIdentifier(col); err != nil {
			return "", nil, err
		}
		args = append(args, patch[col])
		sets[i] = fmt.Sprintf("%s = $%d", col, len(args))
	}
	where, args := buildWhere(filters, args)
	return fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", table, strings.Join(sets, ", "), where), args, nil
}

func buildWhere(filters []Filter, args []interface{}) (string, []interface{}) {
	if len(filters) == 0 {
		return "", args
	}
	conditions := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case OpIs:
			if f.Value == nil || strings.EqualFold(fmt.Sprint(f.Value), "null") {
				conditions = append(conditions, f.Column+" IS NULL")
			} else {
				conditions = append(conditions, f.Column+" IS NOT NULL")
			}
		case OpIn:
			values := f.Value.([]string)
			if len(values) == 0 {
				conditions = append(conditions, "FALSE")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				args = append(args, v)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			conditions = append(conditions, fmt.Sprintf("%s IN (%s)", f.Column, strings.Join(placeholders, ", ")))
		default:
			args = append(args, f.Value)
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", f.Column, sqlOperators[f.Op], len(args)))
		}
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withValue(values map[string]interface{}, key string, value interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		copied[k] = v
	}
	copied[key] = value
	return copied
}

func providerError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &ProviderError{Code: string(pqErr.Code), Message: pqErr.Message}
	}
	return err
}

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	FullName     string `db:"full_name"`
	Role         string `db:"role"`
}

func (r userRow) user() models.User {
	return models.User{
		ID:    r.ID,
		Email: r.Email,
		UserMetadata: models.UserMetadata{
			Role:     models.UserRole(r.Role),
			FullName: r.FullName,
		},
	}
}

// postgresAuth checks credentials against the users table and issues HS256 sessions.
type postgresAuth struct {
	db     *sqlx.DB
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	token      string
	dispatcher authDispatcher
}

func (a *postgresAuth) SetSession(accessToken string) {
	a.mu.Lock()
	a.token = strings.TrimSpace(accessToken)
	a.mu.Unlock()
}

func (a *postgresAuth) currentToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *postgresAuth) GetSession(ctx context.Context) (*models.Session, error) {
	token := a.currentToken()
	if token == "" {
		return nil, nil
	}
	claims, err := a.parse(token)
	if err != nil {
		a.SetSession("")
		return nil, nil
	}
	return &models.Session{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User: models.User{
			ID:           claims.Subject,
			Email:        claims.Email,
			UserMetadata: claims.UserMetadata,
		},
	}, nil
}

func (a *postgresAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	const query = `SELECT id, email, password_hash, full_name, role FROM users WHERE LOWER(email) = LOWER($1)`
	var row userRow
	if err := a.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ProviderError{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"}
		}
		return nil, providerError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, &ProviderError{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"}
	}

	session, err := a.issue(row.user())
	if err != nil {
		return nil, err
	}
	a.SetSession(session.AccessToken)

	copied := *session
	a.dispatcher.emit(models.AuthEventSignedIn, &copied)
	return session, nil
}

func (a *postgresAuth) SignOut(ctx context.Context) error {
	a.SetSession("")
	a.dispatcher.emit(models.AuthEventSignedOut, nil)
	return nil
}

func (a *postgresAuth) UpdateUser(ctx context.Context, metadata models.UserMetadata) (*models.User, error) {
	current, err := a.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoSession
	}
	const query = `UPDATE users SET full_name = $1 WHERE id = $2 RETURNING id, email, password_hash, full_name, role`
	var row userRow
	if err := a.db.GetContext(ctx, &row, query, metadata.FullName, current.User.ID); err != nil {
		return nil, providerError(err)
	}
	user := row.user()
	session, err := a.issue(user)
	if err != nil {
		return nil, err
	}
	a.SetSession(session.AccessToken)

	copied := *session
	a.dispatcher.emit(models.AuthEventUserUpdated, &copied)
	return &user, nil
}

func (a *postgresAuth) OnAuthStateChange(handler AuthStateHandler) func() {
	return a.dispatcher.subscribe(handler)
}

func (a *postgresAuth) issue(user models.User) (*models.Session, error) {
	issuedAt := a.now().UTC()
	expiresAt := issuedAt.Add(a.expiry)
	claims := &models.JWTClaims{
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    a.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("backend: sign session: %w", err)
	}
	return &models.Session{AccessToken: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (a *postgresAuth) parse(token string) (*models.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &models.JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*models.JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}
	return claims, nil
}
