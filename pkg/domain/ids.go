package domain

import (
	"github.com/google/uuid"

	dErrors "verigate/pkg/domain-errors"
)

// Typed UUID wrappers for entity identifiers. The wrappers prevent mixing a
// case id with a user id at compile time; construct them from external input
// via the Parse functions so validation happens at trust boundaries.

type (
	// UserID identifies a Principal.
	UserID uuid.UUID
	// CaseID identifies a VerificationCase.
	CaseID uuid.UUID
	// DocumentID identifies an EvidenceDocument.
	DocumentID uuid.UUID
)

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewCaseID returns a fresh random CaseID.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(u), nil
}

// ParseCaseID constructs a CaseID from external input.
func ParseCaseID(s string) (CaseID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid case id")
	}
	return CaseID(u), nil
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return DocumentID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid document id")
	}
	return DocumentID(u), nil
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id CaseID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps the wrappers as canonical UUID strings in JSON
// bodies and text-based stores.

func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id CaseID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CaseID) UnmarshalText(text []byte) error {
	parsed, err := ParseCaseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
