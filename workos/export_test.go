package workos

// Seal exposes the session sealer to black-box tests.
var Seal = seal
