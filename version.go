package main

// Version stores the current version number of sftpup. It is set by the Makefile.
var Version = "dev"
