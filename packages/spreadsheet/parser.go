package spreadsheet

import (
	"fmt"
	"strconv"
)

type NodePosition struct {
	Start int
	End   int
}

// Lookup returns the computed value of a cell, or nil when the cell is absent
type Lookup func(key CellKey) Primitive

// ASTNode is a node of a parsed arithmetic expression. walking the tree
// replaces substituting values into the expression text.
type ASTNode interface {
	Eval(lookup Lookup) (Primitive, error)
	GetPosition() NodePosition
	ToString() string
}

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    float64
	Position NodePosition
}

func (n *NumberNode) Eval(lookup Lookup) (Primitive, error) {
	return n.Value, nil
}

func (n *NumberNode) GetPosition() NodePosition {
	return n.Position
}

func (n *NumberNode) ToString() string {
	return FormatValue(n.Value)
}

// CellRefNode represents a reference to a single cell
type CellRefNode struct {
	Key      CellKey
	Position NodePosition
}

// Eval reads the referenced value. anything other than a finite number,
// including an absent cell, reads as 0.
func (n *CellRefNode) Eval(lookup Lookup) (Primitive, error) {
	if lookup == nil {
		return 0.0, nil
	}
	if num, ok := lookup(n.Key).(float64); ok && isFinite(num) {
		return num, nil
	}
	return 0.0, nil
}

func (n *CellRefNode) GetPosition() NodePosition {
	return n.Position
}

func (n *CellRefNode) ToString() string {
	return string(n.Key)
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Op       BinaryOp
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

func (n *BinaryOpNode) Eval(lookup Lookup) (Primitive, error) {
	leftVal, err := n.Left.Eval(lookup)
	if err != nil {
		return nil, err
	}
	rightVal, err := n.Right.Eval(lookup)
	if err != nil {
		return nil, err
	}

	leftNum, leftOk := leftVal.(float64)
	rightNum, rightOk := rightVal.(float64)
	if !leftOk || !rightOk {
		return nil, NewSpreadsheetError(ErrorCodeValue, "arithmetic requires numeric values")
	}

	switch n.Op {
	case BinOpAdd:
		return leftNum + rightNum, nil
	case BinOpSubtract:
		return leftNum - rightNum, nil
	case BinOpMultiply:
		return leftNum * rightNum, nil
	case BinOpDivide:
		if rightNum == 0 {
			return nil, NewSpreadsheetError(ErrorCodeOther, "Division by zero")
		}
		return leftNum / rightNum, nil
	default:
		return nil, NewSpreadsheetError(ErrorCodeValue, "Unknown operator")
	}
}

func (n *BinaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BinaryOpNode) ToString() string {
	var op string
	switch n.Op {
	case BinOpAdd:
		op = "+"
	case BinOpSubtract:
		op = "-"
	case BinOpMultiply:
		op = "*"
	case BinOpDivide:
		op = "/"
	}
	return fmt.Sprintf("(%s%s%s)", n.Left.ToString(), op, n.Right.ToString())
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Op       UnaryOp
	Operand  ASTNode
	Position NodePosition
}

func (n *UnaryOpNode) Eval(lookup Lookup) (Primitive, error) {
	val, err := n.Operand.Eval(lookup)
	if err != nil {
		return nil, err
	}
	num, ok := val.(float64)
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "unary operator requires a numeric value")
	}
	if n.Op == UnaryOpMinus {
		return -num, nil
	}
	return num, nil
}

func (n *UnaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *UnaryOpNode) ToString() string {
	if n.Op == UnaryOpMinus {
		return "-" + n.Operand.ToString()
	}
	return "+" + n.Operand.ToString()
}

// NewParser creates a new parser over the given tokens
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseExpression tokenizes and parses an arithmetic expression in one step
func ParseExpression(input string) (ASTNode, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 || p.tokens[0].Type == TokenEOF {
		return nil, NewSpreadsheetError(ErrorCodeValue, "empty expression")
	}

	node, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.tokens) && p.tokens[p.pos].Type != TokenEOF {
		return nil, NewSpreadsheetError(ErrorCodeValue, "unexpected token: "+p.tokens[p.pos].Value)
	}
	return node, nil
}

func (p *Parser) parseAddition() (ASTNode, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}
	}

	return left, nil
}

func (p *Parser) parseMultiplication() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}
	}

	return left, nil
}

func (p *Parser) parseUnary() (ASTNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, NewSpreadsheetError(ErrorCodeValue, "unexpected end of expression")
	}

	tok := p.tokens[p.pos]
	if tok.Type == TokenUnaryPrefixOp {
		op := UnaryOpPlus
		if tok.Value == "-" {
			op = UnaryOpMinus
		}

		p.pos++
		operand, err := p.parseUnary() // recurse for chained unary operators
		if err != nil {
			return nil, err
		}

		return &UnaryOpNode{
			Op:       op,
			Operand:  operand,
			Position: NodePosition{Start: tok.Pos, End: operand.GetPosition().End},
		}, nil
	}

	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ASTNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, NewSpreadsheetError(ErrorCodeValue, "unexpected end of expression")
	}

	tok := p.tokens[p.pos]
	switch tok.Type {
	case TokenNumber:
		p.pos++
		num, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, NewSpreadsheetError(ErrorCodeValue, "invalid number: "+tok.Value)
		}
		return &NumberNode{
			Value:    num,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenCell:
		p.pos++
		return &CellRefNode{
			Key:      CellKey(tok.Value),
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenLeftParen:
		p.pos++
		expr, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].Type != TokenRightParen {
			return nil, NewSpreadsheetError(ErrorCodeValue, "missing closing parenthesis")
		}
		p.pos++
		return expr, nil

	default:
		return nil, NewSpreadsheetError(ErrorCodeValue, "unexpected token: "+tok.Value)
	}
}

// CellReferences walks the tree and returns every referenced key once, in
// the order they first appear
func CellReferences(node ASTNode) []CellKey {
	var keys []CellKey
	seen := make(map[CellKey]bool)
	var walk func(n ASTNode)
	walk = func(n ASTNode) {
		switch v := n.(type) {
		case *CellRefNode:
			if !seen[v.Key] {
				seen[v.Key] = true
				keys = append(keys, v.Key)
			}
		case *BinaryOpNode:
			walk(v.Left)
			walk(v.Right)
		case *UnaryOpNode:
			walk(v.Operand)
		}
	}
	if node != nil {
		walk(node)
	}
	return keys
}
