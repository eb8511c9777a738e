package loader

import (
	"github.com/wasmkit/aotlink/objfile"
)

const pageSize = 65536

// satelliteNamespace is the import namespace satellite modules resolve
// their shared memory and table from.
const satelliteNamespace = "env"

// shareModule is the synthetic module instantiated under the satellite
// import namespace. It imports the main module's exported memory and
// re-exports it as "memory", and defines a private single-slot function
// table exported as "table". Satellites therefore share the main
// module's address space but not its call table; cross-module calls go
// through probe handles instead of table slots.
type shareModule struct {
	mainName string
	minPages uint32
}

// EncodeTo emits a complete binary module: magic, version, then the
// import, table, and export sections.
func (m shareModule) EncodeTo(e *objfile.Encoder) {
	e.Bytes([]byte{0x00, 0x61, 0x73, 0x6D})
	e.Bytes([]byte{0x01, 0x00, 0x00, 0x00})

	writeSection(e, objfile.SectionImport, m.importSection)
	writeSection(e, objfile.SectionTable, m.tableSection)
	writeSection(e, objfile.SectionExport, m.exportSection)
}

func (m shareModule) importSection(e *objfile.Encoder) {
	mem := objfile.MemoryType{Limits: objfile.Limits{Min: m.minPages}}
	imp := objfile.NewImport(m.mainName, "memory", mem)
	e.Uint(1)
	imp.EncodeTo(e)
}

func (m shareModule) tableSection(e *objfile.Encoder) {
	e.Uint(1)
	e.Byte(objfile.TableRefByte)
	objfile.Limits{Min: 1, Max: 1, HasMax: true}.EncodeTo(e)
}

func (m shareModule) exportSection(e *objfile.Encoder) {
	e.Uint(2)
	e.Name("memory")
	e.Byte(byte(objfile.KindMemory))
	e.Uint(0)
	e.Name("table")
	e.Byte(byte(objfile.KindTable))
	e.Uint(0)
}

// writeSection frames a section: id byte, payload size, payload. The
// payload is measured with a counting pass before it is written.
func writeSection(e *objfile.Encoder, id objfile.SectionID, body func(*objfile.Encoder)) {
	m := objfile.NewMeasurer()
	body(m)
	e.Byte(byte(id))
	e.Uint(uint32(m.Len()))
	body(e)
}
