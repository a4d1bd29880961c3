// identity хранит субъекта, подтверждённого Identity Guard, в контексте запроса.
package identity

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Into кладёт идентификатор субъекта в контекст.
func Into(ctx context.Context, subject uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, subject)
}

// From возвращает субъекта; ok=false, если guard не выполнялся.
func From(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || v == uuid.Nil {
		return uuid.Nil, false
	}

	return v, true
}
