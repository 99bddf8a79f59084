package sproto

import (
	"fmt"
	"strings"
)

// Dump renders a decoded record as an indented tree, for debugging and
// logging — it never participates in the wire format (C11, grounded on the
// teacher's SPrint/PrintSchema tree-drawing style in printer.go).
func Dump(t *Type, v Value) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", t.Name)
	dumpStruct(&b, t, v, 0)
	return b.String()
}

// PrintDump writes Dump's output to stdout. Kept as a thin side-effecting
// wrapper over the pure Dump so tests and composable callers can stay pure.
func PrintDump(t *Type, v Value) {
	fmt.Print(Dump(t, v))
}

func dumpStruct(b *strings.Builder, t *Type, v Value, nestLevel int) {
	for i, fv := range v.Struct {
		f := t.fieldByTag(fv.Tag)

		branch := "├─"
		if i == len(v.Struct)-1 {
			branch = "└─"
		}

		indent := strings.Repeat("│  ", nestLevel)
		label := fmt.Sprintf("tag %d", fv.Tag)
		if f != nil {
			label = f.Name
		}

		dumpValue(b, indent, branch, label, f, fv.Value, nestLevel)
	}
}

func dumpValue(b *strings.Builder, indent, branch, label string, f *FieldDescriptor, v Value, nestLevel int) {
	if v.IsArray() {
		fmt.Fprintf(b, "%s%s %s: [%d]%s\n", indent, branch, label, len(v.Array), v.Elem)
		for i, elem := range v.Array {
			elemBranch := "├─"
			if i == len(v.Array)-1 {
				elemBranch = "└─"
			}
			elemIndent := indent + "   "
			elemLabel := fmt.Sprintf("[%d]", i)
			var sub *Type
			if f != nil {
				sub = f.SubType
			}
			dumpScalar(b, elemIndent, elemBranch, elemLabel, sub, elem, nestLevel+1)
		}
		return
	}

	var sub *Type
	if f != nil {
		sub = f.SubType
	}
	dumpScalar(b, indent, branch, label, sub, v, nestLevel)
}

func dumpScalar(b *strings.Builder, indent, branch, label string, sub *Type, v Value, nestLevel int) {
	switch v.Kind {
	case KindStruct:
		fmt.Fprintf(b, "%s%s %s: struct\n", indent, branch, label)
		if sub != nil {
			dumpStruct(b, sub, v, nestLevel+1)
		}
	case KindString:
		fmt.Fprintf(b, "%s%s %s: %q\n", indent, branch, label, v.Str)
	case KindBinary:
		fmt.Fprintf(b, "%s%s %s: %d bytes\n", indent, branch, label, len(v.Bin))
	case KindDouble:
		fmt.Fprintf(b, "%s%s %s: %v\n", indent, branch, label, v.Double)
	case KindBoolean:
		fmt.Fprintf(b, "%s%s %s: %v\n", indent, branch, label, v.Bool)
	default:
		fmt.Fprintf(b, "%s%s %s: %v\n", indent, branch, label, v.Int)
	}
}
