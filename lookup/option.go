// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lookup

import "github.com/rs/zerolog"

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(service *Service) {
		service.logger = logger
	}
}
