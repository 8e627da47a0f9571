// Package backendtest provides an in-memory backend.Client for tests.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
)

// shared is the data and user directory every client handed out by one Memory sees.
type shared struct {
	mu       sync.Mutex
	tables   map[string][]map[string]interface{}
	fail     map[string]error
	calls    []string
	users    map[string]memoryUser
	sessions map[string]models.User
}

// Memory stores rows as decoded JSON objects and evaluates queries the way the providers do.
type Memory struct {
	*shared
	auth *memoryAuth
}

var _ backend.Client = (*Memory)(nil)

// New returns an empty backend.
func New() *Memory {
	sh := &shared{
		tables:   make(map[string][]map[string]interface{}),
		fail:     make(map[string]error),
		users:    make(map[string]memoryUser),
		sessions: make(map[string]models.User),
	}
	return &Memory{shared: sh, auth: &memoryAuth{shared: sh}}
}

// Fork returns a client over the same data with its own session slot, like a second browser.
func (m *Memory) Fork() *Memory {
	return &Memory{shared: m.shared, auth: &memoryAuth{shared: m.shared}}
}

// Factory hands out a fresh fork per call.
func (m *Memory) Factory() backend.Factory {
	return func() backend.Client { return m.Fork() }
}

// Seed appends rows to a table. Values go through JSON so they look exactly like stored rows.
func (m *Memory) Seed(table string, rows ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], normalizeRow(r))
	}
}

// Rows returns the raw rows of a table.
func (m *Memory) Rows(table string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]interface{}(nil), m.tables[table]...)
}

// FailOn makes every call of the operation ("select", "insert", "update") on table return err.
func (m *Memory) FailOn(operation, table string, err error) {
	m.mu.Lock()
	m.fail[operation+":"+table] = err
	m.mu.Unlock()
}

// Calls lists "operation:table" for every data call made.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *Memory) record(operation, table string) error {
	m.calls = append(m.calls, operation+":"+table)
	return m.fail[operation+":"+table]
}

// Select filters, sorts and limits the table.
func (m *Memory) Select(_ context.Context, table string, q backend.Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if err := m.record("select", table); err != nil {
		m.mu.Unlock()
		return err
	}
	var out []map[string]interface{}
	for _, row := range m.tables[table] {
		if matchesAll(row, q.Filters) {
			out = append(out, copyRow(row))
		}
	}
	m.mu.Unlock()

	if len(q.Orders) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Orders {
				c := compare(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if q.Single {
		if len(out) == 0 {
			return backend.ErrNoRows
		}
		return decode(out[0], dest)
	}
	if out == nil {
		out = []map[string]interface{}{}
	}
	return decode(out, dest)
}

// Insert stores the row, generating an id when missing.
func (m *Memory) Insert(_ context.Context, table string, values map[string]interface{}, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("insert", table); err != nil {
		return err
	}
	row := normalizeRow(values)
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	m.tables[table] = append(m.tables[table], row)
	if dest == nil {
		return nil
	}
	return decode(row, dest)
}

// Update patches every matching row and decodes the first one into dest.
func (m *Memory) Update(_ context.Context, table string, filters []backend.Filter, patch map[string]interface{}, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("update", table); err != nil {
		return err
	}
	normalized := normalizeRow(patch)
	var first map[string]interface{}
	for _, row := range m.tables[table] {
		if !matchesAll(row, filters) {
			continue
		}
		for k, v := range normalized {
			row[k] = v
		}
		if first == nil {
			first = row
		}
	}
	if first == nil {
		return backend.ErrNoRows
	}
	if dest == nil {
		return nil
	}
	return decode(first, dest)
}

// Auth returns the in-memory session API.
func (m *Memory) Auth() backend.AuthClient {
	return m.auth
}

// AddUser registers credentials for SignInWithPassword.
func (m *Memory) AddUser(user models.User, password string) {
	m.mu.Lock()
	m.users[user.Email] = memoryUser{user: user, password: password}
	m.mu.Unlock()
}

// IssueToken creates a valid access token for user without signing in, as another tab would have.
func (m *Memory) IssueToken(user models.User) string {
	token := "tok-" + uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = user
	m.mu.Unlock()
	return token
}

func normalizeRow(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("backendtest: marshal row: %v", err))
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("backendtest: row is not an object: %v", err))
	}
	return out
}

func copyRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

func decode(v interface{}, dest interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func matchesAll(row map[string]interface{}, filters []backend.Filter) bool {
	for _, f := range filters {
		if !matches(row[f.Column], f) {
			return false
		}
	}
	return true
}

func matches(value interface{}, f backend.Filter) bool {
	switch f.Op {
	case backend.OpIs:
		if f.Value == nil {
			return value == nil
		}
		return compare(value, normalizeValue(f.Value)) == 0
	case backend.OpIn:
		for _, candidate := range f.Value.([]string) {
			if fmt.Sprint(value) == candidate {
				return true
			}
		}
		return false
	}
	if value == nil {
		return false
	}
	c := compare(value, normalizeValue(f.Value))
	switch f.Op {
	case backend.OpEq:
		return c == 0
	case backend.OpNeq:
		return c != 0
	case backend.OpGt:
		return c > 0
	case backend.OpGte:
		return c >= 0
	case backend.OpLt:
		return c < 0
	case backend.OpLte:
		return c <= 0
	}
	return false
}

// compare orders nulls first, then numbers, timestamps and finally strings.
func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return sign(af - bf)
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	at, aerr := time.Parse(time.RFC3339Nano, as)
	bt, berr := time.Parse(time.RFC3339Nano, bs)
	if aerr == nil && berr == nil {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		}
		return 0
	}
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}
