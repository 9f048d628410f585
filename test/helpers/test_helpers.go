package helpers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/auth"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/nimasrn/seva-booking/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const TestJWTSecret = "e2e-secret"

func SetupTestDB(t *testing.T) *pg.DB {
	return repository.NewTestDB(t)
}

// SetupTestRedis starts a miniredis and an adapter cached under a name
// private to the test.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func NewTokenManager(t *testing.T) *auth.Manager {
	m, err := auth.NewManager(TestJWTSecret, "seva-booking", time.Hour)
	require.NoError(t, err)
	return m
}

func Token(t *testing.T, m *auth.Manager, userID uuid.UUID) string {
	token, err := m.Generate(userID, "")
	require.NoError(t, err)
	return token
}

// Response is what Do captured from the handler.
type Response struct {
	Status int
	Body   []byte
}

func (r Response) Decode(t *testing.T, v any) {
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

// Do runs one request through a fully wired handler, no sockets involved.
func Do(handler xhttp.RequestHandler, method, uri, token string, body any) Response {
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&fasthttp.Request{}, nil, nil)
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		b, _ := json.Marshal(body)
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBody(b)
	}
	handler(ctx)
	return Response{
		Status: ctx.Response.StatusCode(),
		Body:   append([]byte(nil), ctx.Response.Body()...),
	}
}
