package objfile_test

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/wasmkit/aotlink/errors"
	"github.com/wasmkit/aotlink/objfile"
)

func TestFuncTypeEncoding(t *testing.T) {
	tests := []struct {
		name string
		ft   objfile.FuncType
		want []byte
	}{
		{
			name: "i32 to i32",
			ft: objfile.FuncType{
				Params:  objfile.ResultType{objfile.ValI32},
				Results: objfile.ResultType{objfile.ValI32},
			},
			want: []byte{0x60, 0x01, 0x7F, 0x01, 0x7F},
		},
		{
			name: "nullary void",
			ft:   objfile.FuncType{},
			want: []byte{0x60, 0x00, 0x00},
		},
		{
			name: "mixed params",
			ft: objfile.FuncType{
				Params:  objfile.ResultType{objfile.ValI64, objfile.ValF64},
				Results: objfile.ResultType{objfile.ValF32},
			},
			want: []byte{0x60, 0x02, 0x7E, 0x7C, 0x01, 0x7D},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objfile.Encode(tt.ft)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encode: got %#v, want %#v", got, tt.want)
			}
			if size := objfile.Size(tt.ft); size != len(tt.want) {
				t.Errorf("size: got %d, want %d", size, len(tt.want))
			}
		})
	}
}

func TestFuncTypeStructuralEquality(t *testing.T) {
	a := objfile.FuncType{
		Params:  objfile.ResultType{objfile.ValI32, objfile.ValI64},
		Results: objfile.ResultType{objfile.ValF64},
	}
	b := objfile.FuncType{
		Params:  objfile.ResultType{objfile.ValI32, objfile.ValI64},
		Results: objfile.ResultType{objfile.ValF64},
	}
	if !a.Equal(b) {
		t.Error("separately constructed equal signatures must compare equal")
	}
	if a.Hash() != b.Hash() {
		t.Error("equal signatures must hash equal")
	}

	c := objfile.FuncType{
		Params:  objfile.ResultType{objfile.ValI64, objfile.ValI32},
		Results: objfile.ResultType{objfile.ValF64},
	}
	if a.Equal(c) {
		t.Error("param order is significant")
	}

	// Moving a type across the params/results boundary must change the
	// hash even though the concatenated tag sequence is unchanged.
	d := objfile.FuncType{
		Params:  objfile.ResultType{objfile.ValI32},
		Results: objfile.ResultType{objfile.ValI64, objfile.ValF64},
	}
	e := objfile.FuncType{
		Params:  objfile.ResultType{objfile.ValI32, objfile.ValI64},
		Results: objfile.ResultType{objfile.ValF64},
	}
	if d.Hash() == e.Hash() {
		t.Error("hash must separate params from results")
	}
}

func TestResultTypeEqualHash(t *testing.T) {
	a := objfile.ResultType{objfile.ValI32, objfile.ValF32}
	b := objfile.ResultType{objfile.ValI32, objfile.ValF32}
	if !a.Equal(b) || a.Hash() != b.Hash() {
		t.Error("structural equality/hash over the sequence")
	}
	if a.Equal(objfile.ResultType{objfile.ValI32}) {
		t.Error("length is significant")
	}
}

func TestNewMemoryType(t *testing.T) {
	max := uint32(256)

	mt, err := objfile.NewMemoryType(objfile.LimitsHasMax, 16, &max)
	if err != nil {
		t.Fatalf("NewMemoryType with max: %v", err)
	}
	got := objfile.Encode(mt)
	want := []byte{0x01, 0x10, 0x80, 0x02}
	if !bytes.Equal(got, want) {
		t.Errorf("encode: got %#v, want %#v", got, want)
	}

	mt, err = objfile.NewMemoryType(objfile.LimitsNoMax, 1, nil)
	if err != nil {
		t.Fatalf("NewMemoryType without max: %v", err)
	}
	got = objfile.Encode(mt)
	want = []byte{0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("encode: got %#v, want %#v", got, want)
	}
}

func TestNewMemoryTypeMissingMax(t *testing.T) {
	_, err := objfile.NewMemoryType(objfile.LimitsHasMax, 16, nil)
	if err == nil {
		t.Fatal("expected construction to fail without a max")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidInput}) {
		t.Errorf("expected invalid_input error, got %v", err)
	}
}

func TestImportEncoding(t *testing.T) {
	imp := objfile.NewImport("env", "__heap_base", objfile.GlobalType{Value: objfile.ValI32})

	if imp.Kind() != objfile.KindGlobal {
		t.Errorf("Kind() = %v, want global", imp.Kind())
	}
	if imp.Index != -1 {
		t.Errorf("new import should start unresolved, got index %d", imp.Index)
	}

	got := objfile.Encode(imp)
	want := []byte{
		0x03, 'e', 'n', 'v',
		0x0B, '_', '_', 'h', 'e', 'a', 'p', '_', 'b', 'a', 's', 'e',
		0x03,       // global kind
		0x7F, 0x00, // i32, immutable
	}
	if !bytes.Equal(got, want) {
		t.Errorf("encode:\n got %#v\nwant %#v", got, want)
	}
}

func TestMemoryImportEncoding(t *testing.T) {
	mt, err := objfile.NewMemoryType(objfile.LimitsNoMax, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	imp := objfile.NewImport("env", "memory", mt)

	got := objfile.Encode(imp)
	want := []byte{
		0x03, 'e', 'n', 'v',
		0x06, 'm', 'e', 'm', 'o', 'r', 'y',
		0x02,       // memory kind
		0x00, 0x01, // no max, min 1
	}
	if !bytes.Equal(got, want) {
		t.Errorf("encode:\n got %#v\nwant %#v", got, want)
	}
}
