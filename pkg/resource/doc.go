/*
Package resource locates the files a page is built from.

A page directory holds resources addressed by base name ("head", "content",
"scripts") and stored under a single extension ("content.html",
"scripts.js"). The extension decides how the resource is rendered, so callers
resolve a base name to an extension first and read the file second.

Resources live behind the Store interface. FsStore serves them from any
afero filesystem (the OS, a directory jail or memory) and SQLStore serves them
from a SQLite table that can be seeded from a directory with Import.
*/
package resource
