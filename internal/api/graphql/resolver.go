package graphql

import (
	"context"
	"errors"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

type principalKey struct{}

// WithPrincipal attaches the caller identity of one request to ctx. Root
// fields read it once and pass it to the services explicitly.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return p
}

// Resolver is the root resolver for the Query and Mutation types.
type Resolver struct {
	auth   ports.AuthService
	orders ports.OrderService
	log    zerolog.Logger
}

func NewResolver(auth ports.AuthService, orders ports.OrderService, log zerolog.Logger) *Resolver {
	return &Resolver{auth: auth, orders: orders, log: log}
}

type idArgs struct {
	ID gql.ID
}

// ----- Queries ---------------------------------------------------------------

func (r *Resolver) Orders(ctx context.Context) (*[]*orderResolver, error) {
	orders, err := r.orders.List(ctx, principalFrom(ctx))
	if err != nil {
		return nil, err
	}
	return orderList(orders), nil
}

func (r *Resolver) Order(ctx context.Context, args idArgs) (*orderResolver, error) {
	o, err := r.orders.Get(ctx, principalFrom(ctx), string(args.ID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return newOrder(o), nil
}

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	u, err := r.auth.Me(ctx, principalFrom(ctx))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return newUser(u), nil
}

func (r *Resolver) OrderStats(ctx context.Context) (*statsResolver, error) {
	stats, err := r.orders.Stats(ctx, principalFrom(ctx))
	if err != nil {
		return nil, err
	}
	return newStats(stats), nil
}

// ----- Mutations -------------------------------------------------------------

// Expected failures land in the payload's errorMessage and errorCode; anything
// else is returned as a field error.
func payloadFailure(err error) (payloadError, error) {
	if err != nil && !domain.IsExpected(err) {
		return payloadError{}, err
	}
	return newPayloadError(err), nil
}

type loginArgs struct {
	Input struct {
		Username string
		Password string
	}
}

func (r *Resolver) Login(ctx context.Context, args loginArgs) (*loginPayload, error) {
	res, err := r.auth.Login(ctx, args.Input.Username, args.Input.Password)
	pe, err := payloadFailure(err)
	if err != nil {
		return nil, err
	}
	return &loginPayload{payloadError: pe, res: res}, nil
}

type createOrderArgs struct {
	Input struct {
		Title       string
		Description *string
	}
}

func (r *Resolver) CreateOrder(ctx context.Context, args createOrderArgs) (*orderPayload, error) {
	in := ports.CreateOrderInput{Title: args.Input.Title}
	if args.Input.Description != nil {
		in.Description = *args.Input.Description
	}
	o, err := r.orders.Create(ctx, principalFrom(ctx), in)
	pe, err := payloadFailure(err)
	if err != nil {
		return nil, err
	}
	return &orderPayload{payloadError: pe, order: o}, nil
}

type updateOrderArgs struct {
	Input struct {
		ID          gql.ID
		Title       *string
		Description *string
		Status      *string
	}
}

func (r *Resolver) UpdateOrder(ctx context.Context, args updateOrderArgs) (*orderPayload, error) {
	o, err := r.orders.Update(ctx, principalFrom(ctx), ports.UpdateOrderInput{
		ID:          string(args.Input.ID),
		Title:       args.Input.Title,
		Description: args.Input.Description,
		Status:      args.Input.Status,
	})
	pe, err := payloadFailure(err)
	if err != nil {
		return nil, err
	}
	return &orderPayload{payloadError: pe, order: o}, nil
}

func (r *Resolver) DeleteOrder(ctx context.Context, args idArgs) (*deletePayload, error) {
	err := r.orders.Delete(ctx, principalFrom(ctx), string(args.ID))
	pe, perr := payloadFailure(err)
	if perr != nil {
		return nil, perr
	}
	return &deletePayload{payloadError: pe, success: err == nil}, nil
}

type addOrderItemArgs struct {
	Input struct {
		OrderID  gql.ID
		Name     string
		Quantity int32
		Price    Decimal
	}
}

func (r *Resolver) AddOrderItem(ctx context.Context, args addOrderItemArgs) (*addItemPayload, error) {
	item, o, err := r.orders.AddItem(ctx, principalFrom(ctx), ports.AddOrderItemInput{
		OrderID:  string(args.Input.OrderID),
		Name:     args.Input.Name,
		Quantity: int(args.Input.Quantity),
		Price:    args.Input.Price.Value,
	})
	pe, err := payloadFailure(err)
	if err != nil {
		return nil, err
	}
	return &addItemPayload{payloadError: pe, item: item, order: o}, nil
}

type removeOrderItemArgs struct {
	ItemID gql.ID
}

func (r *Resolver) RemoveOrderItem(ctx context.Context, args removeOrderItemArgs) (*removeItemPayload, error) {
	o, err := r.orders.RemoveItem(ctx, principalFrom(ctx), string(args.ItemID))
	pe, perr := payloadFailure(err)
	if perr != nil {
		return nil, perr
	}
	return &removeItemPayload{payloadError: pe, success: err == nil, order: o}, nil
}
