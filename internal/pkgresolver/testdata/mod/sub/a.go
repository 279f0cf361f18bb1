package subpkg
