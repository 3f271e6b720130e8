// Package book 定义电子书的文档模型：章节、标记节点树以及节点地址。
// 翻译流程只读源 Book，所有改写都发生在 Clone 出来的副本上。
package book

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType 节点类型
type NodeType int

const (
	TextNode    NodeType = iota // 文本节点，Data 为文本内容
	ElementNode                 // 元素节点，Data 为标签名
	RawNode                     // 注释、DOCTYPE、处理指令等原样保留的节点
)

// String 返回节点类型名称
func (t NodeType) String() string {
	switch t {
	case TextNode:
		return "text"
	case ElementNode:
		return "element"
	case RawNode:
		return "raw"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// RawKind 原样节点的细分类型
type RawKind int

const (
	RawComment   RawKind = iota // <!-- ... -->
	RawDirective                // <!DOCTYPE ...>
	RawProcInst                 // <?xml ...?>
)

// Attribute 元素属性。Key 可以带命名空间前缀（如 epub:type）。
type Attribute struct {
	Key   string
	Value string
}

// Node 文档树中的一个节点
type Node struct {
	Type     NodeType
	Data     string
	Raw      RawKind
	Attr     []Attribute
	Children []*Node
}

// Text 创建文本节点
func Text(s string) *Node {
	return &Node{Type: TextNode, Data: s}
}

// Element 创建元素节点
func Element(tag string, attrs []Attribute, children ...*Node) *Node {
	return &Node{Type: ElementNode, Data: tag, Attr: attrs, Children: children}
}

// Raw 创建原样保留节点
func Raw(kind RawKind, data string) *Node {
	return &Node{Type: RawNode, Raw: kind, Data: data}
}

// Attrs 按 key/value 交替的参数构造属性列表
func Attrs(kv ...string) []Attribute {
	if len(kv)%2 != 0 {
		panic("book.Attrs: odd number of arguments")
	}
	attrs := make([]Attribute, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		attrs = append(attrs, Attribute{Key: kv[i], Value: kv[i+1]})
	}
	return attrs
}

// GetAttr 获取属性值
func (n *Node) GetAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// IsBlank 文本节点内容去除空白后是否为空
func (n *Node) IsBlank() bool {
	return n.Type == TextNode && strings.TrimSpace(n.Data) == ""
}

// Clone 深拷贝节点及其子树
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Type: n.Type, Data: n.Data, Raw: n.Raw}
	if n.Attr != nil {
		c.Attr = make([]Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// TextContent 返回子树中所有文本节点拼接后的内容
func (n *Node) TextContent() string {
	var sb strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		if x.Type == TextNode {
			sb.WriteString(x.Data)
			return
		}
		for _, c := range x.Children {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// CloneNodes 深拷贝节点序列
func CloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// NodePath 节点地址：从章节顶层开始逐层的子节点下标
type NodePath []int

// String 以 /0/3/1 形式输出路径
func (p NodePath) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, i := range p {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(i))
	}
	return sb.String()
}

// Child 返回追加一个下标后的新路径，不与原路径共享底层数组
func (p NodePath) Child(i int) NodePath {
	out := make(NodePath, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// ParsePath 解析 String 输出的路径
func ParsePath(s string) (NodePath, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "/" {
		return NodePath{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("invalid node path %q: must start with /", s)
	}
	parts := strings.Split(s[1:], "/")
	p := make(NodePath, 0, len(parts))
	for _, part := range parts {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid node path %q: bad index %q", s, part)
		}
		p = append(p, i)
	}
	return p, nil
}

// Resolve 在节点序列中按路径定位节点
func Resolve(nodes []*Node, p NodePath) (*Node, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("empty node path")
	}
	level := nodes
	var cur *Node
	for depth, i := range p {
		if i < 0 || i >= len(level) {
			return nil, fmt.Errorf("node path %s: index %d out of range at depth %d (len %d)", p, i, depth, len(level))
		}
		cur = level[i]
		level = cur.Children
	}
	return cur, nil
}

// WalkFunc 遍历回调，返回 false 时不再进入该节点的子树
type WalkFunc func(n *Node, path NodePath) bool

// Walk 深度优先、按子节点顺序遍历节点序列
func Walk(nodes []*Node, fn WalkFunc) {
	walk(nodes, NodePath{}, fn)
}

func walk(nodes []*Node, prefix NodePath, fn WalkFunc) {
	for i, n := range nodes {
		p := prefix.Child(i)
		if !fn(n, p) {
			continue
		}
		if len(n.Children) > 0 {
			walk(n.Children, p, fn)
		}
	}
}
