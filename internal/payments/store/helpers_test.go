// SPDX-License-Identifier: MIT

package store

import "strconv"

func formatInt(i int64) string { return strconv.FormatInt(i, 10) }
