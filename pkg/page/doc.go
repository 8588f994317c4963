// Package page runs the entry logic of a page directory.
//
// Every page directory has an "index" unit that decides how the page is
// produced. It is either Go code registered in a Registry under the
// directory, or a declarative manifest (index.toml, index.json, index.yaml)
// naming the title, variables and headers of a plain templated page.
package page
