/*
 * SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

import (
	"context"
)

// Key is a typed context key avoiding clashes with keys
// of other packages.
type Key string

func (k Key) String() string {
	return string(k)
}

type ValueKey[T any] interface {
	Name() string
	WithValue(ctx context.Context, value T) context.Context
	Get(ctx context.Context) T
	Lookup(ctx context.Context) (T, bool)
}

type valueKey[T any] struct {
	key Key
}

func NewValueKey[T any](name string) ValueKey[T] {
	return &valueKey[T]{
		key: Key(name),
	}
}

func (k *valueKey[T]) Name() string {
	return k.key.String()
}

func (k *valueKey[T]) WithValue(ctx context.Context, value T) context.Context {
	return context.WithValue(ctx, k.key, value)
}

// Get provides the value for the key or the zero value.
func (k *valueKey[T]) Get(ctx context.Context) T {
	v, _ := k.Lookup(ctx)
	return v
}

func (k *valueKey[T]) Lookup(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(k.key).(T)
	return v, ok
}
