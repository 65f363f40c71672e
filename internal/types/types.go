// Package types defines the core domain models for the uni-chain courses
// dashboard. It contains the CourseRecord snapshot model, the call descriptor
// submitted to the courseGrading ledger module, and shared constants.
package types

// Version is the current version of the dashboard
const Version = "0.2.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// PalletName is the remote ledger module that owns course records and all
// ownership/pricing rules. The dashboard never applies business logic itself.
const PalletName = "courseGrading"

// CoursesMap is the pallet storage map holding course records keyed by dna.
const CoursesMap = "courses"

// CourseCountItem is the pallet storage value counting minted courses. Its
// changes signal that the course key set may have changed.
const CourseCountItem = "courseCnt"

// CourseYear is the academic year a course belongs to.
type CourseYear string

const (
	YearFirst  CourseYear = "First"
	YearSecond CourseYear = "Second"
	YearThird  CourseYear = "Third"
	YearFourth CourseYear = "Fourth"
)

// CourseRecord is an immutable snapshot of one on-ledger course. Snapshots
// are never mutated in place; the sync layer replaces the full set on every
// subscription push.
type CourseRecord struct {
	Dna     string     `json:"dna"`         // hex encoding of the 16-byte identifier
	Owner   string     `json:"owner"`       // account address of the current owner
	Price   uint64     `json:"price"`       // listing price in base units; 0 means not for sale
	Year    CourseYear `json:"course_year"` // academic year
	Credits uint8      `json:"credits"`     // credit weight assigned at mint time
}

// ForSale reports whether the course has a non-zero listing price.
func (c CourseRecord) ForSale() bool {
	return c.Price > 0
}

// OwnedBy reports whether the given account owns this course.
func (c CourseRecord) OwnedBy(account string) bool {
	return account != "" && c.Owner == account
}

// Call describes a state-changing request to the ledger: target module,
// operation name, ordered parameters, and per-parameter kind flags.
type Call struct {
	Module    string   `json:"module"`
	Operation string   `json:"operation"`
	Params    []string `json:"params"`
	KindFlags []bool   `json:"kind_flags"`
}

// NewCreateCall builds the descriptor for minting a new course.
func NewCreateCall() Call {
	return Call{
		Module:    PalletName,
		Operation: "createCourse",
		Params:    []string{},
		KindFlags: []bool{},
	}
}

// NewSetPriceCall builds the descriptor for changing a course's listing price.
func NewSetPriceCall(dna, newPrice string) Call {
	return Call{
		Module:    PalletName,
		Operation: "setPrice",
		Params:    []string{dna, newPrice},
		KindFlags: []bool{true, true},
	}
}

// NewTransferCall builds the descriptor for transferring course ownership.
func NewTransferCall(receiver, dna string) Call {
	return Call{
		Module:    PalletName,
		Operation: "transfer",
		Params:    []string{receiver, dna},
		KindFlags: []bool{true, true},
	}
}

// NewBuyCall builds the descriptor for purchasing a listed course.
func NewBuyCall(dna, price string) Call {
	return Call{
		Module:    PalletName,
		Operation: "buyCourse",
		Params:    []string{dna, price},
		KindFlags: []bool{true, true},
	}
}

// NewBreedCall builds the descriptor for deriving a new course from two
// courses the sender already owns.
func NewBreedCall(firstParent, secondParent string) Call {
	return Call{
		Module:    PalletName,
		Operation: "breedCourse",
		Params:    []string{firstParent, secondParent},
		KindFlags: []bool{true, true},
	}
}

// SignedCall wraps a serialized Call with its ed25519 signature. The node
// verifies the signature against the embedded public key before dispatching
// the call to the pallet.
type SignedCall struct {
	Call      []byte `json:"call"`
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"public_key"`
}
