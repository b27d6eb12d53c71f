/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

import (
	"context"
	"time"
)

var cancelkey = NewValueKey[context.CancelFunc]("cancel")

// CancelContext provides a cancelable context, which can be
// cancelled later on with Cancel.
func CancelContext(ctx context.Context) context.Context {
	return cancelContext(context.WithCancel(ctx))
}

func TimeoutContext(ctx context.Context, duration time.Duration) context.Context {
	return cancelContext(context.WithTimeout(ctx, duration))
}

func cancelContext(ctx context.Context, cancel context.CancelFunc) context.Context {
	return cancelkey.WithValue(ctx, cancel)
}

// Cancel cancels a context created by CancelContext or
// TimeoutContext. It is a noop for other contexts.
func Cancel(ctx context.Context) {
	if c, ok := cancelkey.Lookup(ctx); ok {
		c()
	}
}
