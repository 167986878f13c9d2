// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index

// Rebuild runs one scheduled tick without waiting for cron.
var Rebuild = (*Scheduler).rebuild
