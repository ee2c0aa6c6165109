package serum

import (
	"fmt"

	"github.com/gagliardetto/treeout"
)

func (p *Slab) EncodeToTree(parent treeout.Branches) {
	parent.Child(fmt.Sprintf("Slab[bump=%d leaves=%d free=%d]",
		p.Header.BumpIndex, p.Header.LeafCount, p.Header.FreeListLength)).
		ParentFunc(func(slabBranch treeout.Branches) {
			if p.Header.LeafCount == 0 {
				return
			}
			p.encodeNode(slabBranch, p.Header.Root, 0)
		})
}

func (p *Slab) encodeNode(parent treeout.Branches, index uint32, depth int) {
	if int(index) >= len(p.Nodes) || depth > len(p.Nodes) {
		parent.Child(fmt.Sprintf("#%d <invalid>", index))
		return
	}
	node := &p.Nodes[index]
	switch node.Tag {
	case SlabNodeTagInner:
		parent.Child(fmt.Sprintf("#%d inner prefix=%d key=%d:%d",
			index, node.Inner.PrefixLen, node.Inner.Key.Hi, node.Inner.Key.Lo)).
			ParentFunc(func(innerBranch treeout.Branches) {
				p.encodeNode(innerBranch, node.Inner.Children[0], depth+1)
				p.encodeNode(innerBranch, node.Inner.Children[1], depth+1)
			})
	case SlabNodeTagLeaf:
		parent.Child(fmt.Sprintf("#%d leaf price=%d qty=%d tif=%d owner=%s",
			index, GetPriceFromKey(node.Leaf.Key), node.Leaf.Quantity, node.Leaf.TifOffset, node.Leaf.Owner))
	default:
		parent.Child(fmt.Sprintf("#%d %s", index, node.Tag))
	}
}

func (p *Slab) Tree() string {
	tree := treeout.New("")
	p.EncodeToTree(tree)
	return tree.String()
}
