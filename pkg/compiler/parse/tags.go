package parse

import "strings"

// voidTags is the fixed whitelist of HTML void elements. Void elements never
// take children and never have a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// forbiddenTags cannot appear in a template at all. Scripts would be arbitrary
// code execution; style blocks belong to the companion stylesheet, never the
// markup; template is reserved for a future directive surface.
var forbiddenTags = map[string]string{
	"script":   "script elements are not allowed in templates",
	"style":    "style elements are not allowed in templates; use a component stylesheet",
	"template": "template elements are reserved and cannot be used",
}

// svgTags is the set of elements permitted inside an <svg> subtree. Anything
// else under an svg namespace is a parse error. foreignObject re-opens the
// HTML namespace for its children.
var svgTags = map[string]bool{
	"svg": true, "a": true, "animate": true, "animateMotion": true,
	"animateTransform": true, "circle": true, "clipPath": true, "defs": true,
	"desc": true, "ellipse": true, "feBlend": true, "feColorMatrix": true,
	"feComponentTransfer": true, "feComposite": true, "feConvolveMatrix": true,
	"feDiffuseLighting": true, "feDisplacementMap": true, "feDistantLight": true,
	"feDropShadow": true, "feFlood": true, "feFuncA": true, "feFuncB": true,
	"feFuncG": true, "feFuncR": true, "feGaussianBlur": true, "feImage": true,
	"feMerge": true, "feMergeNode": true, "feMorphology": true, "feOffset": true,
	"fePointLight": true, "feSpecularLighting": true, "feSpotLight": true,
	"feTile": true, "feTurbulence": true, "filter": true, "foreignObject": true,
	"g": true, "image": true, "line": true, "linearGradient": true,
	"marker": true, "mask": true, "metadata": true, "mpath": true, "path": true,
	"pattern": true, "polygon": true, "polyline": true, "radialGradient": true,
	"rect": true, "set": true, "stop": true, "switch": true, "symbol": true,
	"text": true, "textPath": true, "title": true, "tspan": true, "use": true,
	"view": true,
}

// IsVoid reports whether tag is a void element.
func IsVoid(tag string) bool { return voidTags[tag] }

// ForbiddenReason returns a non-empty message when tag may not appear in
// templates.
func ForbiddenReason(tag string) string { return forbiddenTags[tag] }

// AllowedInSVG reports whether tag may appear inside an svg subtree.
func AllowedInSVG(tag string) bool { return svgTags[tag] }

// IsCustomElement reports whether tag follows the custom-element naming
// convention this compiler recognizes: lowercase, starts with an ASCII
// letter, and namespaced with at least one hyphen (ns-name).
func IsCustomElement(tag string) bool {
	if !strings.Contains(tag, "-") {
		return false
	}
	if tag[0] < 'a' || tag[0] > 'z' {
		return false
	}
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// SplitComponentTag splits a custom-element tag into its namespace and name
// per the ns-name convention: the segment before the first hyphen is the
// namespace, the remainder is the component name.
func SplitComponentTag(tag string) (namespace, name string) {
	i := strings.Index(tag, "-")
	if i < 0 {
		return "", tag
	}
	return tag[:i], tag[i+1:]
}

// isTagStartChar reports whether c may start a tag name.
func isTagStartChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isTagChar reports whether c may continue a tag name.
func isTagChar(c byte) bool {
	return isTagStartChar(c) || c >= '0' && c <= '9' || c == '-'
}

// isAttrNameChar reports whether c may appear in an attribute name. Colons
// are included so directive names (for:each, if:true) lex as single names.
func isAttrNameChar(c byte) bool {
	return isTagChar(c) || c == ':' || c == '_' || c == '.'
}

// isIdentStartChar / isIdentChar give the identifier alphabet of template
// expressions.
func isIdentStartChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentChar(c byte) bool {
	return isIdentStartChar(c) || c >= '0' && c <= '9'
}
