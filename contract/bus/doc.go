/*
Package bus holds the contracts shared by consumers, the endpoint binder and
messaging runtimes. It has no dependencies beyond the standard library.
*/
package bus
