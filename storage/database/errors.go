package database

import "fmt"

// BackendType selects the KVStore implementation behind a column.
type BackendType uint8

const (
	BackendMemory BackendType = iota
	BackendLevelDB
	BackendBadger
)

func (t BackendType) String() string {
	switch t {
	case BackendMemory:
		return "memory"
	case BackendLevelDB:
		return "leveldb"
	case BackendBadger:
		return "badger"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}
