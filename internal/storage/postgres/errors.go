package postgres

import "errors"

// Sentinel errors shared across repositories. Handlers map these onto HTTP
// status codes: not-found errors to 404, taken/in-use errors to 409.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username or email already taken")
	ErrUserInactive       = errors.New("user is inactive")
	ErrUserInUse          = errors.New("user still owns characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")

	ErrRaceNotFound = errors.New("race not found")
	ErrRaceExists   = errors.New("race name already taken")
	ErrRaceInUse    = errors.New("race is referenced by characters")

	ErrArchetypeNotFound = errors.New("archetype not found")
	ErrArchetypeExists   = errors.New("archetype name already taken")
	ErrArchetypeInUse    = errors.New("archetype is referenced by characters")

	ErrItemNotFound = errors.New("item not found")
	ErrItemExists   = errors.New("item name already taken")
	ErrItemInUse    = errors.New("item is equipped or held by characters")

	ErrSkillNotFound = errors.New("skill not found")
	ErrSkillExists   = errors.New("skill name already taken")
	ErrSkillInUse    = errors.New("skill is attached to other entities")

	ErrTagNotFound = errors.New("tag not found")
	ErrTagExists   = errors.New("tag name already taken")
	ErrTagInUse    = errors.New("tag is attached to other entities")

	ErrImageNotFound = errors.New("image not found")
	ErrImageInUse    = errors.New("image is used as a character avatar")

	ErrCharacterNotFound = errors.New("character not found")
	ErrCharacterExists   = errors.New("character name already taken")

	// ErrAlreadyAttached is returned when attaching a skill/tag/item that
	// the target entity already carries.
	ErrAlreadyAttached = errors.New("association already exists")
	// ErrNotAttached is returned when detaching a skill/tag/item that the
	// target entity does not carry.
	ErrNotAttached = errors.New("association does not exist")

	// ErrMissingReference is returned when an insert or update names a
	// foreign-key target that does not exist.
	ErrMissingReference = errors.New("referenced entity does not exist")
)

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	return sqlState(err) == "23505"
}

// isForeignKeyError checks if a pgx error is a foreign-key violation.
// On insert/update this means a missing referent; on delete it means the
// row is still referenced (ON DELETE RESTRICT).
func isForeignKeyError(err error) bool {
	// SQLSTATE 23503 (foreign_key_violation)
	return sqlState(err) == "23503"
}

func sqlState(err error) string {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState()
	}
	return ""
}
