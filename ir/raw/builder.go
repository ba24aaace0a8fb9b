package raw

// Builder assembles an in-memory Document with a single-level page tree.
// It is mainly used to describe fixtures and synthetic documents.
type Builder struct {
	doc     *Document
	next    int
	catalog *DictObj
	pages   *DictObj
	kids    []Object
}

func NewBuilder(version string) *Builder {
	b := &Builder{doc: NewDocument(version), next: 1}
	b.catalog = Dict().Set("Type", NameLiteral("Catalog"))
	b.pages = Dict().Set("Type", NameLiteral("Pages"))
	return b
}

// Object stores obj as a new indirect object.
func (b *Builder) Object(obj Object) RefObj {
	ref := b.doc.Add(b.next, obj)
	b.next++
	return ref
}

// Info installs the document information dictionary.
func (b *Builder) Info(info *DictObj) *Builder {
	b.doc.TrailerObj.(*DictObj).Set("Info", b.Object(info))
	return b
}

// Trailer sets an arbitrary trailer entry.
func (b *Builder) Trailer(key string, value Object) *Builder {
	b.doc.TrailerObj.(*DictObj).Set(key, value)
	return b
}

// Catalog exposes the document catalog for additional entries.
func (b *Builder) Catalog() *DictObj { return b.catalog }

// PagesAttr sets an inheritable attribute on the root page tree node.
func (b *Builder) PagesAttr(key string, value Object) *Builder {
	b.pages.Set(key, value)
	return b
}

// AddPage appends a page dictionary to the page tree.
func (b *Builder) AddPage(page *DictObj) *Builder {
	page.Set("Type", NameLiteral("Page"))
	b.kids = append(b.kids, b.Object(page))
	return b
}

// Encrypted marks the document as carrying an encryption dictionary.
func (b *Builder) Encrypted() *Builder {
	b.doc.IsEncrypted = true
	return b
}

// Build finalises the page tree and returns the document.
func (b *Builder) Build() *Document {
	pagesRef := b.Object(b.pages)
	for _, kid := range b.kids {
		if page, ok := b.doc.Objects[kid.(RefObj).R].(*DictObj); ok {
			page.Set("Parent", pagesRef)
		}
	}
	b.pages.Set("Kids", NewArray(b.kids...))
	b.pages.Set("Count", NumberInt(int64(len(b.kids))))
	b.catalog.Set("Pages", pagesRef)
	b.doc.TrailerObj.(*DictObj).Set("Root", b.Object(b.catalog))
	return b.doc
}
