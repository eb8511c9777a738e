package objfile

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// SectionID identifies a module section in the binary format.
type SectionID byte

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (except custom sections).
const (
	SectionCustom    SectionID = 0  // Custom section (can appear anywhere)
	SectionType      SectionID = 1  // Type section (function signatures)
	SectionImport    SectionID = 2  // Import section
	SectionFunction  SectionID = 3  // Function section (type indices)
	SectionTable     SectionID = 4  // Table section
	SectionMemory    SectionID = 5  // Memory section
	SectionGlobal    SectionID = 6  // Global section
	SectionExport    SectionID = 7  // Export section
	SectionStart     SectionID = 8  // Start section
	SectionElement   SectionID = 9  // Element section
	SectionCode      SectionID = 10 // Code section (function bodies)
	SectionData      SectionID = 11 // Data section
	SectionDataCount SectionID = 12 // Data count section (bulk memory)
	SectionTag       SectionID = 13 // Tag section (exception handling)
)

// ExternalKind identifies the type of an imported or exported item.
type ExternalKind byte

const (
	KindFunc   ExternalKind = 0 // Function import/export
	KindTable  ExternalKind = 1 // Table import/export
	KindMemory ExternalKind = 2 // Memory import/export
	KindGlobal ExternalKind = 3 // Global import/export
	KindTag    ExternalKind = 4 // Tag import/export (exception handling)
)

// Limits flags
const (
	LimitsNoMax  byte = 0x00
	LimitsHasMax byte = 0x01
)

// Type section encodings
const (
	FuncTypeByte byte = 0x60 // func
	TableRefByte byte = 0x70 // funcref element type
)

// Global mutability
const (
	GlobalImmutable byte = 0x00
	GlobalMutable   byte = 0x01
)

// Opcodes used by constant expressions and function bodies emitted here.
const (
	OpEnd       byte = 0x0B
	OpCall      byte = 0x10
	OpLocalGet  byte = 0x20
	OpGlobalGet byte = 0x23
	OpI32Const  byte = 0x41
	OpI64Const  byte = 0x42
	OpI32Add    byte = 0x6A
)

func (k ExternalKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}
