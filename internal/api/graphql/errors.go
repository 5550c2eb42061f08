package graphql

import (
	"context"
	"fmt"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

const genericMessage = "Unexpected execution error"

// CodeValidationFailed marks documents, operations and variables the engine
// rejected before any resolver ran.
const CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"

// Presenter rewrites response errors. Expected resolver errors keep their
// message; anything else is logged and, outside development, replaced by a
// generic message. Every presented error carries extensions.code.
type Presenter struct {
	exposeInternal bool
	log            zerolog.Logger
}

func NewPresenter(exposeInternal bool, log zerolog.Logger) *Presenter {
	return &Presenter{exposeInternal: exposeInternal, log: log}
}

// Present fills in qe's message and code in place.
func (p *Presenter) Present(ctx context.Context, qe *gqlerrors.QueryError) {
	if _, ok := qe.Extensions["code"]; ok {
		return
	}
	err := qe.ResolverError
	switch {
	case err == nil:
		qe.Extensions = map[string]interface{}{"code": CodeValidationFailed}
	case domain.IsExpected(err):
		qe.Message = domain.MessageOf(err)
		qe.Extensions = map[string]interface{}{"code": domain.CodeOf(err)}
	default:
		p.log.Error().Err(err).Interface("path", qe.Path).Msg("graphql resolver failed")
		qe.Message = p.internalMessage(err.Error())
		qe.Extensions = map[string]interface{}{"code": domain.CodeInternal}
	}
}

// MakePanicError and LogPanic are the engine's panic hooks; both run for
// every recovered resolver panic.
func (p *Presenter) MakePanicError(ctx context.Context, value interface{}) *gqlerrors.QueryError {
	qe := gqlerrors.Errorf("%s", p.internalMessage(fmt.Sprint(value)))
	qe.Extensions = map[string]interface{}{"code": domain.CodeInternal}
	return qe
}

func (p *Presenter) LogPanic(ctx context.Context, value interface{}) {
	p.log.Error().Interface("panic", value).Msg("graphql resolver panicked")
}

func (p *Presenter) internalMessage(detail string) string {
	if p.exposeInternal {
		return detail
	}
	return genericMessage
}
