// Package all registers every lookup backend with the lookup factory.
package all

import (
	_ "gamcsv/internal/lookup/sqlite"
)
