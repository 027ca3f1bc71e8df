package introspect

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// handWrapped operations have signatures the generator cannot express, so
// SphinxAll leaves them out.
var handWrapped = map[string]bool{
	"scale":      true,
	"ifthenelse": true,
	"bandjoin":   true,
	"bandrank":   true,
}

// Docstring returns help text for name. The result is cached.
func (c *Cache) Docstring(name string) (string, error) {
	c.mu.RLock()
	doc, ok := c.docs[name]
	c.mu.RUnlock()
	if ok {
		return doc, nil
	}

	d, err := c.documented(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(sentence(d.Description))
	b.WriteString("\n\nExample:\n    ")
	b.WriteString(example(d))
	b.WriteString("\n")

	b.WriteString("\nReturns:\n")
	for _, n := range d.RequiredOutput {
		writeArg(&b, d.Details[n])
	}

	if len(d.RequiredInput) > 0 {
		b.WriteString("\nArgs:\n")
		for _, n := range d.RequiredInput {
			writeArg(&b, d.Details[n])
		}
	}

	if len(d.OptionalInput) > 0 {
		b.WriteString("\nKeyword args:\n")
		for _, n := range d.OptionalInput {
			writeArg(&b, d.Details[n])
		}
	}

	if len(d.OptionalOutput) > 0 {
		b.WriteString("\nOther Parameters:\n")
		for _, n := range d.OptionalOutput {
			writeArg(&b, d.Details[n])
		}
	}

	b.WriteString("\nRaises:\n    *errors.Error\n")

	doc = b.String()
	c.mu.Lock()
	c.docs[name] = doc
	c.mu.Unlock()
	return doc, nil
}

// Sphinx returns reStructuredText reference docs for name.
func (c *Cache) Sphinx(name string) (string, error) {
	d, err := c.documented(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if d.MemberImage() != "" {
		b.WriteString(".. method:: ")
	} else {
		b.WriteString(".. function:: ")
	}

	params := make([]string, 0, len(d.RequiredInput)+len(d.OptionalInput)+len(d.OptionalOutput))
	params = append(params, d.RequiredInput...)
	for _, n := range d.OptionalInput {
		params = append(params, n+"="+d.Details[n].TypeName())
	}
	for _, n := range d.OptionalOutput {
		params = append(params, n+"=bool")
	}
	b.WriteString(d.Name + "(" + strings.Join(params, ", ") + ")\n\n")

	b.WriteString(sentence(d.Description) + "\n\n")
	b.WriteString("Example:\n    " + example(d) + "\n\n")

	for _, n := range append(append([]string{}, d.RequiredInput...), d.OptionalInput...) {
		det := d.Details[n]
		b.WriteString(":param " + det.TypeName() + " " + n + ": " + det.Blurb + "\n")
	}
	for _, n := range d.OptionalOutput {
		b.WriteString(":param bool " + n + ": enable output: " + d.Details[n].Blurb + "\n")
	}

	types := make([]string, 0, len(d.RequiredOutput)+1)
	for _, n := range d.RequiredOutput {
		types = append(types, d.Details[n].TypeName())
	}
	rtype := "list[" + strings.Join(types, ", ") + "]"
	if len(types) == 1 {
		rtype = types[0]
	}
	if len(d.OptionalOutput) > 0 {
		types = append(types, "map[string]any")
		rtype += " or list[" + strings.Join(types, ", ") + "]"
	}
	b.WriteString(":rtype: " + rtype + "\n")
	b.WriteString(":raises Error:\n")

	return b.String(), nil
}

// SphinxAll renders a summary table followed by the docs of every
// documented operation, sorted by name.
func (c *Cache) SphinxAll() (string, error) {
	var names []string
	for _, name := range c.Names() {
		if !handWrapped[name] {
			names = append(names, name)
		}
	}

	var b strings.Builder
	b.WriteString(".. class:: opcall.Image\n\n")
	b.WriteString("   .. rubric:: Methods\n\n")
	b.WriteString("   .. autosummary::\n")
	b.WriteString("      :nosignatures:\n\n")
	for _, name := range names {
		b.WriteString("      ~" + name + "\n")
	}
	b.WriteString("\n")

	for _, name := range names {
		doc, err := c.Sphinx(name)
		if err != nil {
			return "", err
		}
		for i, line := range strings.Split(strings.TrimRight(doc, "\n"), "\n") {
			switch {
			case line == "":
				b.WriteString("\n")
			case i == 0:
				b.WriteString("   " + line + "\n")
			default:
				b.WriteString("      " + line + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// example renders a call line such as "out := invert(in)".
func example(d *Descriptor) string {
	args := make([]string, 0, len(d.RequiredInput)+len(d.OptionalInput))
	args = append(args, d.RequiredInput...)
	for _, n := range d.OptionalInput {
		args = append(args, n+"="+d.Details[n].TypeName())
	}
	call := d.Name + "(" + strings.Join(args, ", ") + ")"
	if len(d.RequiredOutput) == 0 {
		return call
	}
	return strings.Join(d.RequiredOutput, ", ") + " := " + call
}

func writeArg(b *strings.Builder, det Details) {
	b.WriteString("    " + det.Name + " (" + det.TypeName() + "): " + det.Blurb + "\n")
}

// sentence capitalizes s and ends it with a period.
func sentence(s string) string {
	if s == "" {
		return "."
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:] + "."
}
