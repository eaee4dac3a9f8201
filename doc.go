/*
Package marshal reads and writes the Python marshal format, the
serialization used for the code objects stored in compiled .pyc files.

Decoding keeps enough detail to reproduce the input byte for byte: the tag
each string was read with is recorded on the String, and values that carried
the reference flag are kept in a side table. The tree holds LoadRef and
StoreRef placeholders that index that table instead of pointers, so shared
and self-referencing values need no cyclic Go data.

Optimize drops table slots that nothing loads, Resolve inlines every
reference that is not part of a cycle, and Minimize shares repeated leaves
again. The pyc container header is handled by LoadPyc and DumpPyc.

For more information on the format see
https://github.com/python/cpython/blob/main/Python/marshal.c
*/
package marshal
