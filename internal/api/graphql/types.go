package graphql

import (
	"strings"

	gql "github.com/graph-gophers/graphql-go"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

type userResolver struct{ u *domain.User }

func newUser(u *domain.User) *userResolver {
	if u == nil {
		return nil
	}
	return &userResolver{u: u}
}

func (r *userResolver) ID() gql.ID          { return gql.ID(r.u.ID) }
func (r *userResolver) Username() string    { return r.u.Username }
func (r *userResolver) Email() string       { return r.u.Email }
func (r *userResolver) Role() string        { return strings.ToUpper(r.u.Role) }
func (r *userResolver) CreatedAt() DateTime { return DateTime{r.u.CreatedAt} }

type itemResolver struct{ it *domain.OrderItem }

func newItem(it *domain.OrderItem) *itemResolver {
	if it == nil {
		return nil
	}
	return &itemResolver{it: it}
}

func (r *itemResolver) ID() gql.ID        { return gql.ID(r.it.ID) }
func (r *itemResolver) Name() string      { return r.it.Name }
func (r *itemResolver) Quantity() int32   { return int32(r.it.Quantity) }
func (r *itemResolver) Price() Decimal    { return Decimal{r.it.Price} }
func (r *itemResolver) Subtotal() Decimal { return Decimal{r.it.Subtotal()} }

// orderResolver computes total and itemCount from the items it was given, so
// they always agree with the items field.
type orderResolver struct{ o *domain.Order }

func newOrder(o *domain.Order) *orderResolver {
	if o == nil {
		return nil
	}
	return &orderResolver{o: o}
}

func (r *orderResolver) ID() gql.ID               { return gql.ID(r.o.ID) }
func (r *orderResolver) Title() string            { return r.o.Title }
func (r *orderResolver) Description() *string     { return nullable(r.o.Description) }
func (r *orderResolver) Status() string           { return string(r.o.Status) }
func (r *orderResolver) ItemCount() int32         { return int32(len(r.o.Items)) }
func (r *orderResolver) Total() Decimal           { return Decimal{r.o.Total()} }
func (r *orderResolver) CreatedBy() *userResolver { return newUser(r.o.Owner) }
func (r *orderResolver) CreatedAt() DateTime      { return DateTime{r.o.CreatedAt} }
func (r *orderResolver) UpdatedAt() DateTime      { return DateTime{r.o.UpdatedAt} }

func (r *orderResolver) Items() []*itemResolver {
	items := make([]*itemResolver, 0, len(r.o.Items))
	for i := range r.o.Items {
		items = append(items, newItem(&r.o.Items[i]))
	}
	return items
}

func orderList(orders []*domain.Order) *[]*orderResolver {
	out := make([]*orderResolver, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrder(o))
	}
	return &out
}

type statsResolver struct{ s *ports.OrderStats }

func newStats(s *ports.OrderStats) *statsResolver {
	if s == nil {
		return nil
	}
	return &statsResolver{s: s}
}

func (r *statsResolver) TotalOrders() int32   { return int32(r.s.TotalOrders) }
func (r *statsResolver) TotalUsers() int32    { return int32(r.s.TotalUsers) }
func (r *statsResolver) PendingOrders() int32 { return int32(r.s.PendingOrders) }
func (r *statsResolver) TotalValue() Decimal  { return Decimal{r.s.TotalValue} }

// payloadError fills the errorMessage / errorCode pair of a mutation payload.
type payloadError struct {
	message string
	code    string
}

func newPayloadError(err error) payloadError {
	if err == nil {
		return payloadError{}
	}
	return payloadError{message: domain.MessageOf(err), code: domain.CodeOf(err)}
}

func (e payloadError) ErrorMessage() *string { return nullable(e.message) }
func (e payloadError) ErrorCode() *string    { return nullable(e.code) }

type loginPayload struct {
	payloadError
	res *ports.LoginResult
}

func (p *loginPayload) Token() *string {
	if p.res == nil {
		return nil
	}
	return &p.res.Token
}

func (p *loginPayload) ExpiresAt() *DateTime {
	if p.res == nil {
		return nil
	}
	return &DateTime{p.res.ExpiresAt}
}

func (p *loginPayload) User() *userResolver {
	if p.res == nil {
		return nil
	}
	return newUser(p.res.User)
}

type orderPayload struct {
	payloadError
	order *domain.Order
}

func (p *orderPayload) Order() *orderResolver { return newOrder(p.order) }

type deletePayload struct {
	payloadError
	success bool
}

func (p *deletePayload) Success() bool { return p.success }

type addItemPayload struct {
	payloadError
	item  *domain.OrderItem
	order *domain.Order
}

func (p *addItemPayload) Item() *itemResolver   { return newItem(p.item) }
func (p *addItemPayload) Order() *orderResolver { return newOrder(p.order) }

type removeItemPayload struct {
	payloadError
	success bool
	order   *domain.Order
}

func (p *removeItemPayload) Success() bool         { return p.success }
func (p *removeItemPayload) Order() *orderResolver { return newOrder(p.order) }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
