package schema

import (
	"strconv"
	"strings"
)

const itemsToken = "[]"

// Path identifies a node by its position under the root of a schema tree.
//
// Property names are stored quoted, so a property literally named "[]" or
// [ItemsName] never collides with an array-items step.
type Path string

// Root is the path of the tree's root node.
const Root Path = ""

// Child returns the path of the property name under p.
func (p Path) Child(name string) Path {
	return p + "." + Path(strconv.Quote(name))
}

// Items returns the path of the array-items node under p.
func (p Path) Items() Path {
	return p + itemsToken
}

// Step is one segment of a [Path].
type Step struct {
	Name  string
	Items bool
}

// Steps splits p into its segments. It returns false if p is malformed.
func (p Path) Steps() ([]Step, bool) {
	var steps []Step

	rest := string(p)
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, itemsToken):
			steps = append(steps, Step{Items: true})
			rest = rest[len(itemsToken):]

		case strings.HasPrefix(rest, "."):
			quoted, err := strconv.QuotedPrefix(rest[1:])
			if err != nil {
				return nil, false
			}

			name, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, false
			}

			steps = append(steps, Step{Name: name})
			rest = rest[1+len(quoted):]

		default:
			return nil, false
		}
	}

	return steps, true
}

// Display renders p for humans, starting from rootName, for example
// "spec.containers[].name".
func (p Path) Display(rootName string) string {
	steps, ok := p.Steps()
	if !ok {
		return rootName + string(p)
	}

	var sb strings.Builder

	sb.WriteString(rootName)

	for _, st := range steps {
		if st.Items {
			sb.WriteString(itemsToken)

			continue
		}

		sb.WriteByte('.')
		sb.WriteString(st.Name)
	}

	return sb.String()
}

// Depth returns the number of steps in p.
func (p Path) Depth() int {
	steps, _ := p.Steps()

	return len(steps)
}
