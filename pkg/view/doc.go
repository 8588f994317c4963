/*
Package view assembles a page from its resources and streams it to a sink.

A View is created once per response with a title and a page directory. Its
Render method executes the document shell, which pulls in the page's "head",
"content", "libraries" and "scripts" resources (each resolved by base name,
each optional) around a fixed document skeleton.

Pages with expensive bodies can call RenderPageHeader first. It renders only
the top of the document, pads it past the size proxies tend to buffer, and
flushes it to the client. The following Render emits the rest. The two halves
concatenated are the same bytes a single Render produces, apart from the
padding.

Resources are rendered by extension. "html", "gohtml", "tmpl" and "tpl"
resources are html/template templates with the view's functions available;
anything else is written verbatim. Inside templates:

	{{resource "name"}}              page resource, at most once per view
	{{component "name" (dict ...)}}  shared component with extra variables
	{{script "name" "anonymous"}}    inline script from the scripts directory
	{{scriptWith "name" (dict ...)}} inline script with variables
	{{set "name" value}}             bind a variable in the view's scope
	{{get "name"}}                   read a variable
	{{header}}                       the site header fragment (shell only)

get reads the scope the current resource was rendered with, so inside a
component it sees the extra bindings passed to it, the same as .Vars. set
writes to that scope and to the view's, so later resources see the value too.

A View is not safe for concurrent use.
*/
package view
