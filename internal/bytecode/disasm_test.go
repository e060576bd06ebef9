package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
)

func TestDisassemble_LabelsFunctionEntryPointsAndOperands(t *testing.T) {
	img := &bytecode.Image{
		MainFunctionIndex: 0,
		Functions: []bytecode.FuncEntry{
			{CodeOffset: 5, ParamCount: 0},
		},
		Code: []byte{
			byte(bytecode.CALL), 0, 0, 0, 1,
			byte(bytecode.HALT),
		},
	}

	out := bytecode.Disassemble(img)

	assert.Contains(t, out, "func[0]:")
	assert.Contains(t, out, "CALL")
	assert.Contains(t, out, " 1\n")
	assert.Contains(t, out, "HALT")
}

func TestDisassemble_ReportsMainIndex(t *testing.T) {
	img := &bytecode.Image{
		MainFunctionIndex: 2,
		Code:              []byte{byte(bytecode.HALT)},
	}
	out := bytecode.Disassemble(img)
	assert.Contains(t, out, "main = func[2]")
}
