package parsetree

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeModel reads the JSON document the grammar front-end produces (out of
// scope per spec.md §1; this is the contract the rest of the pipeline reads
// instead), the way iospec.Decode reads the I/O spec document.
func DecodeModel(r io.Reader) (*Model, error) {
	var wire wireModel
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding model document: %w", err)
	}
	return wire.toModel()
}

type wireModel struct {
	Equations   []wireEquation      `json:"equations"`
	Dimensions  map[string][]string `json:"dimensions"`
	Mappings    []wireMapping       `json:"mappings"`
	InitialTime float64             `json:"initialTime"`
	FinalTime   float64             `json:"finalTime"`
	TimeStep    float64             `json:"timeStep"`
	SavePer     float64             `json:"savePer"`
}

type wireEquation struct {
	LHSText    string          `json:"lhsText"`
	LHSName    string          `json:"lhsName"`
	Subscripts []string        `json:"subscripts"`
	RHSText    string          `json:"rhsText"`
	RHS        json.RawMessage `json:"rhs"`
}

type wireMapping struct {
	FromDim string   `json:"fromDim"`
	ToDim   string   `json:"toDim"`
	Raw     []string `json:"raw"`
}

func (w *wireModel) toModel() (*Model, error) {
	mdl := &Model{
		Dimensions:  w.Dimensions,
		InitialTime: w.InitialTime,
		FinalTime:   w.FinalTime,
		TimeStep:    w.TimeStep,
		SavePer:     w.SavePer,
	}
	for _, m := range w.Mappings {
		mdl.Mappings = append(mdl.Mappings, DimensionMapping{FromDim: m.FromDim, ToDim: m.ToDim, Raw: m.Raw})
	}
	for _, eq := range w.Equations {
		rhs, err := decodeExpr(eq.RHS)
		if err != nil {
			return nil, fmt.Errorf("decoding rhs of %q: %w", eq.LHSText, err)
		}
		mdl.Equations = append(mdl.Equations, Equation{
			LHSText:    eq.LHSText,
			LHSName:    eq.LHSName,
			Subscripts: eq.Subscripts,
			RHSText:    eq.RHSText,
			RHS:        rhs,
		})
	}
	return mdl, nil
}

// wireExpr is the tagged-union JSON shape every Expr node decodes from:
// {"type": "...", ...node-specific fields}.
type wireExpr struct {
	Type       string          `json:"type"`
	Value      float64         `json:"value"`
	Text       string          `json:"text"`
	Name       string          `json:"name"`
	Subscripts []string        `json:"subscripts"`
	Op         string          `json:"op"`
	Left       json.RawMessage `json:"left"`
	Right      json.RawMessage `json:"right"`
	Operand    json.RawMessage `json:"operand"`
	Func       string          `json:"func"`
	Args       []json.RawMessage `json:"args"`
	Inner      json.RawMessage `json:"inner"`
	Input      json.RawMessage `json:"input"`
	Points     [][2]float64    `json:"points"`
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var w wireExpr
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding expression node: %w", err)
	}

	switch w.Type {
	case "number":
		return NumberLiteral{Value: w.Value}, nil
	case "string":
		return StringLiteral{Value: w.Text}, nil
	case "varRef":
		return VarRef{Name: w.Name, Subscripts: w.Subscripts}, nil
	case "binary":
		left, err := decodeExpr(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(w.Right)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: w.Op, Left: left, Right: right}, nil
	case "unary":
		operand, err := decodeExpr(w.Operand)
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: w.Op, Operand: operand}, nil
	case "call":
		args := make([]Expr, len(w.Args))
		for i, a := range w.Args {
			arg, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return CallExpr{Func: w.Func, Args: args}, nil
	case "initial":
		inner, err := decodeExpr(w.Inner)
		if err != nil {
			return nil, err
		}
		return InitialExpr{Inner: inner}, nil
	case "lookup":
		input, err := decodeExpr(w.Input)
		if err != nil {
			return nil, err
		}
		return LookupLiteral{Input: input, Points: w.Points}, nil
	default:
		return nil, fmt.Errorf("unknown expression node type %q", w.Type)
	}
}
