package compare

import (
	"github.com/benedoc-inc/pdfcmp/core/object"
)

// numberTreeKeys are dictionary keys whose values are number trees.
var numberTreeKeys = map[object.Name]bool{
	"PageLabels": true,
	"ParentTree": true,
}

// numberTree is the flattened content of a number tree: alternating keys and
// values in tree order, plus a trailing key that had no value.
type numberTree struct {
	entries  []object.Object
	leftover object.Object
}

// flattenNumberTree walks /Kids depth first and concatenates every /Nums
// array. A node with /Nums is a leaf; its /Kids, if any, are not followed. A /Nums array with an odd length leaves its last key pending; the
// pending key pairs with the first item of the next /Nums array.
func flattenNumberTree(r object.Resolver, root object.Object, dangling func(key object.Object)) numberTree {
	var t numberTree
	visited := make(map[object.Ref]bool)

	var walk func(node object.Object)
	walk = func(node object.Object) {
		if ref, ok := node.(object.Ref); ok {
			if visited[ref] {
				return
			}
			visited[ref] = true
		}
		d, ok := r.Resolve(node).(*object.Dict)
		if !ok {
			return
		}
		nums, ok := r.Resolve(d.Get("Nums")).(*object.Array)
		if !ok {
			if kids, ok := r.Resolve(d.Get("Kids")).(*object.Array); ok {
				for _, kid := range kids.Items() {
					walk(kid)
				}
			}
			return
		}
		for _, item := range nums.Items() {
			if t.leftover == nil {
				t.leftover = item
				continue
			}
			t.entries = append(t.entries, t.leftover, item)
			t.leftover = nil
		}
		if t.leftover != nil && dangling != nil {
			dangling(t.leftover)
		}
	}
	walk(root)
	return t
}

// isNumberTree reports whether o resolves to a dictionary with /Kids or
// /Nums.
func isNumberTree(r object.Resolver, o object.Object) bool {
	d, ok := r.Resolve(o).(*object.Dict)
	return ok && (d.Has("Kids") || d.Has("Nums"))
}
