package handlers

import (
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/pkg/auth"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
)

const userIDKey = "auth.user_id"

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticator guards routes with a Bearer JWT whose subject is the
// caller's profile id.
type Authenticator struct {
	tokens TokenParser
}

func NewAuthenticator(tokens TokenParser) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) Secure(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		raw, ok := auth.BearerToken(string(ctx.Request.Header.Peek("Authorization")))
		if !ok {
			writeError(ctx, xhttp.StatusUnauthorized, errs.KindAuthorization, "missing bearer token")
			return
		}
		claims, err := a.tokens.Parse(raw)
		if err != nil {
			writeError(ctx, xhttp.StatusUnauthorized, errs.KindAuthorization, err.Error())
			return
		}
		id, _ := claims.UserID()
		ctx.SetUserValue(userIDKey, id)
		next(ctx)
	}
}

// callerID is only valid behind Secure.
func callerID(ctx *xhttp.RequestCtx) uuid.UUID {
	id, _ := ctx.UserValue(userIDKey).(uuid.UUID)
	return id
}
