// Package objfile serializes compiler-internal structures into the
// WebAssembly binary format.
//
// Everything here is pure data plus encode logic; there is no I/O. The
// central abstraction is a dual-mode Encoder: with a backing buffer it
// writes bytes, without one it only counts them. Both modes run the same
// control flow, so a measuring pass and a writing pass over the same
// value always agree on byte count. The Encodable contract builds on
// that: measure first, allocate exactly, then write.
//
//	sig := objfile.FuncType{
//	    Params:  objfile.ResultType{objfile.ValI32},
//	    Results: objfile.ResultType{objfile.ValI32},
//	}
//	buf := objfile.Encode(sig) // [0x60 0x01 0x7F 0x01 0x7F]
//
// Relocatable data-segment offsets are built from a small closed
// instruction set (constants, an imported-global read, 32-bit add) and
// emitted as an InstructionGroup terminated by the end opcode.
package objfile
