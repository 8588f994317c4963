/*
Package script writes script resources inline into a page.

Each embed produces one <script> element holding a var declaration per
supplied variable, JSON-encoded, followed by the script body. The body can be
wrapped in an immediately invoked function to keep its declarations out of the
global scope, and can be compressed with a simple lexical pass.

Compress removes comments and collapses whitespace without parsing
JavaScript. It does not understand string, template or regular expression
literals, so a literal containing "//" or "/*" will be damaged. Scripts that
carry such literals should be embedded uncompressed.
*/
package script
