package program

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"itree"
	"itree/expr"
)

var (
	ErrUnknownBlock   = errors.New("program: unknown block")
	ErrDuplicateBlock = errors.New("program: duplicate block id")
	ErrAmbiguousJump  = errors.New("program: block has both a branch and a next block")
)

// A two-way branch on a condition
type Branch struct {
	Cond expr.Expr
	Then itree.ProgramPoint
	Else itree.ProgramPoint
}

// A basic block of the analysed program.
//
// Executing a block adds its assumption to the path, then either branches, jumps to Next, or ends the path.
// Reaching a block with a non-empty Error is a bug.
type Block struct {
	Id     itree.ProgramPoint
	Assume expr.Expr
	Branch *Branch
	Next   *itree.ProgramPoint
	Error  string
}

func (b *Block) IsTerminal() bool {
	return b.Branch == nil && b.Next == nil
}

// A program made of blocks, starting at Entry
type Program struct {
	Name   string
	Entry  itree.ProgramPoint
	blocks map[itree.ProgramPoint]*Block
	order  []itree.ProgramPoint
}

// Create a program from blocks. Every jump target must be one of the blocks, and a block either branches or jumps.
func New(name string, entry itree.ProgramPoint, blocks ...*Block) (*Program, error) {
	p := &Program{
		Name:   name,
		Entry:  entry,
		blocks: map[itree.ProgramPoint]*Block{},
	}
	for _, b := range blocks {
		if _, ok := p.blocks[b.Id]; ok {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateBlock, b.Id)
		}
		p.blocks[b.Id] = b
		p.order = append(p.order, b.Id)
	}
	if _, ok := p.blocks[entry]; !ok {
		return nil, fmt.Errorf("%w: entry %v", ErrUnknownBlock, entry)
	}
	for _, b := range blocks {
		if b.Branch != nil && b.Next != nil {
			return nil, fmt.Errorf("%w: %v", ErrAmbiguousJump, b.Id)
		}
		targets := []itree.ProgramPoint{}
		if b.Branch != nil {
			targets = append(targets, b.Branch.Then, b.Branch.Else)
		}
		if b.Next != nil {
			targets = append(targets, *b.Next)
		}
		for _, target := range targets {
			if _, ok := p.blocks[target]; !ok {
				return nil, fmt.Errorf("%w: %v (jump from %v)", ErrUnknownBlock, target, b.Id)
			}
		}
	}
	return p, nil
}

func (p *Program) Block(id itree.ProgramPoint) (*Block, bool) {
	b, ok := p.blocks[id]
	return b, ok
}

// Number of blocks
func (p *Program) Len() int {
	return len(p.order)
}

// The YAML form of a program
type programFile struct {
	Name   string      `yaml:"name"`
	Entry  uint64      `yaml:"entry"`
	Blocks []blockFile `yaml:"blocks"`
}

type blockFile struct {
	Id     uint64      `yaml:"id"`
	Assume string      `yaml:"assume,omitempty"`
	Branch *branchFile `yaml:"branch,omitempty"`
	Next   *uint64     `yaml:"next,omitempty"`
	Error  string      `yaml:"error,omitempty"`
}

type branchFile struct {
	Cond string `yaml:"cond"`
	Then uint64 `yaml:"then"`
	Else uint64 `yaml:"else"`
}

// Parse a program from its YAML form
func Parse(data []byte) (*Program, error) {
	var s programFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("program: decode: %w", err)
	}
	blocks := make([]*Block, 0, len(s.Blocks))
	for _, bs := range s.Blocks {
		b := &Block{
			Id:    itree.ProgramPoint(bs.Id),
			Error: bs.Error,
		}
		if bs.Assume != "" {
			e, err := expr.Parse(bs.Assume)
			if err != nil {
				return nil, fmt.Errorf("program: block %v assume: %w", bs.Id, err)
			}
			b.Assume = e
		}
		if bs.Branch != nil {
			cond, err := expr.Parse(bs.Branch.Cond)
			if err != nil {
				return nil, fmt.Errorf("program: block %v branch: %w", bs.Id, err)
			}
			b.Branch = &Branch{
				Cond: cond,
				Then: itree.ProgramPoint(bs.Branch.Then),
				Else: itree.ProgramPoint(bs.Branch.Else),
			}
		}
		if bs.Next != nil {
			next := itree.ProgramPoint(*bs.Next)
			b.Next = &next
		}
		blocks = append(blocks, b)
	}
	return New(s.Name, itree.ProgramPoint(s.Entry), blocks...)
}

// Load a program from a YAML file
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	return Parse(data)
}
