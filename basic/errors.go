package basic

// DBResult is the tagged result value handed to upper layers (catalog,
// executor). The storage core itself mostly reports via bool returns; these
// codes are its vocabulary towards the layers above.
type DBResult int

const (
	DBSuccess DBResult = iota
	DBFailed
	DBTableNotExist
	DBTableAlreadyExist
	DBIndexNotFound
	DBIndexAlreadyExist
	DBColumnNameNotExist
)

// String returns the string representation of DBResult
func (r DBResult) String() string {
	switch r {
	case DBSuccess:
		return "DB_SUCCESS"
	case DBFailed:
		return "DB_FAILED"
	case DBTableNotExist:
		return "DB_TABLE_NOT_EXIST"
	case DBTableAlreadyExist:
		return "DB_TABLE_ALREADY_EXIST"
	case DBIndexNotFound:
		return "DB_INDEX_NOT_FOUND"
	case DBIndexAlreadyExist:
		return "DB_INDEX_ALREADY_EXIST"
	case DBColumnNameNotExist:
		return "DB_COLUMN_NAME_NOT_EXIST"
	default:
		return "DB_UNKNOWN"
	}
}
