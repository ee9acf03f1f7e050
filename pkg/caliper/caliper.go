/*
Package caliper contains helpers for Hyperledger Caliper benchmark
configuration used to load-test deployed networks.
*/
package caliper

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// nodeContainer matches monitored Besu node container names.
var nodeContainer = regexp.MustCompile(`^/node-besu[0-9]+$`)

// SetContainers rewrites every "containers" list of monitored Besu node
// containers in all documents of the YAML stream, so that it lists
// /node-besu1 to /node-besuN. Only the lists themselves are replaced, the
// rest of the text is kept as is. It returns the new stream and the number
// of lists updated, if there are none the stream is returned unchanged.
func SetContainers(doc []byte, nodes int) ([]byte, int, error) {
	if nodes < 1 {
		return nil, 0, fmt.Errorf("invalid number of nodes: %d", nodes)
	}
	var lists []*yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	for {
		var root yaml.Node
		err := dec.Decode(&root)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("invalid YAML: %w", err)
		}
		lists = findContainers(&root, lists)
	}
	if len(lists) == 0 {
		return doc, 0, nil
	}

	lines := bytes.SplitAfter(doc, []byte("\n"))
	offsets := make([]int, len(lines)+1)
	for i, l := range lines {
		offsets[i+1] = offsets[i] + len(l)
	}
	res := make([]byte, 0, len(doc))
	var pos int
	for _, v := range lists {
		start, end, text, err := replacement(doc, lines, offsets, v, nodes)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, doc[pos:start]...)
		res = append(res, text...)
		pos = end
	}
	res = append(res, doc[pos:]...)
	return res, len(lists), nil
}

// findContainers appends matching lists in document order.
func findContainers(node *yaml.Node, lists []*yaml.Node) []*yaml.Node {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			if k.Value == "containers" && isNodeList(v) {
				lists = append(lists, v)
				continue
			}
			lists = findContainers(v, lists)
		}
		return lists
	}
	for _, c := range node.Content {
		lists = findContainers(c, lists)
	}
	return lists
}

// replacement returns the byte range of list v in doc and the text to put
// there.
func replacement(doc []byte, lines [][]byte, offsets []int, v *yaml.Node, nodes int) (int, int, []byte, error) {
	first, last := v.Content[0], v.Content[len(v.Content)-1]
	if v.Style&yaml.FlowStyle != 0 {
		start := offsets[v.Line-1] + v.Column - 1
		i := bytes.IndexByte(doc[offsets[last.Line-1]+last.Column-1:], ']')
		if i < 0 {
			return 0, 0, nil, errors.New("unterminated containers list")
		}
		end := offsets[last.Line-1] + last.Column - 1 + i + 1
		names := make([]string, nodes)
		for j := range names {
			names[j] = nodeName(j)
		}
		return start, end, []byte("[" + strings.Join(names, ", ") + "]"), nil
	}

	prefix := lines[first.Line-1][:first.Column-1]
	var buf bytes.Buffer
	for j := 0; j < nodes; j++ {
		buf.Write(prefix)
		buf.WriteString(nodeName(j))
		buf.WriteByte('\n')
	}
	text := buf.Bytes()
	if !bytes.HasSuffix(lines[last.Line-1], []byte("\n")) {
		text = text[:len(text)-1]
	}
	return offsets[first.Line-1], offsets[last.Line], text, nil
}

func isNodeList(v *yaml.Node) bool {
	if v.Kind != yaml.SequenceNode || len(v.Content) == 0 {
		return false
	}
	for _, c := range v.Content {
		if c.Kind != yaml.ScalarNode || !nodeContainer.MatchString(c.Value) {
			return false
		}
	}
	return true
}

func nodeName(i int) string {
	return "/node-besu" + strconv.Itoa(i+1)
}

// UpdateFile applies SetContainers to the file at path.
func UpdateFile(path string, nodes int) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, errors.New("not a regular file")
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	res, n, err := SetContainers(doc, nodes)
	if err != nil || n == 0 {
		return n, err
	}
	return n, os.WriteFile(path, res, fi.Mode().Perm())
}
