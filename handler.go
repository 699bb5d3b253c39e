package api

import (
	"context"
	"reflect"
)

// Void is used as a type parameter when a handler takes no input or
// returns no body.
type Void struct{}

// Handler is the core typed handler signature. The router owns
// validation and serialization; handlers only see validated input.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

// Endpoint is a handler bound to the projection of its request type. Build
// one with Bind.
type Endpoint struct {
	reqType reflect.Type
	call    func(ctx context.Context, vr *ValidatedRequest, v Validator) (any, error)
}

func (e Endpoint) valid() bool { return e.call != nil }

// Bind adapts a typed handler into an Endpoint.
//
// Req is filled from the ValidatedRequest: fields tagged path:"name" or
// query:"name" receive the coerced parameter, and a field named Body receives
// the validated body. Req may also be ValidatedRequest itself, or Void.
func Bind[Req, Resp any](h Handler[Req, Resp]) Endpoint {
	return Endpoint{
		reqType: reflect.TypeFor[Req](),
		call: func(ctx context.Context, vr *ValidatedRequest, v Validator) (any, error) {
			req, err := project[Req](vr)
			if err != nil {
				return nil, err
			}

			if sv, ok := any(req).(SelfValidator); ok {
				if err := sv.Validate(); err != nil {
					return nil, err
				}
			}
			if v != nil {
				if err := v.Validate(req); err != nil {
					return nil, err
				}
			}

			resp, err := h(ctx, req)
			if err != nil {
				return nil, err
			}
			if resp == nil {
				return nil, nil
			}
			if _, ok := any(resp).(*Void); ok {
				return nil, nil
			}
			return resp, nil
		},
	}
}
