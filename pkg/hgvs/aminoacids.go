package hgvs

// oneToThree maps one-letter amino acid codes to HGVS three-letter codes.
var oneToThree = map[byte]string{
	'A': "Ala", 'R': "Arg", 'N': "Asn", 'D': "Asp", 'C': "Cys",
	'Q': "Gln", 'E': "Glu", 'G': "Gly", 'H': "His", 'I': "Ile",
	'L': "Leu", 'K': "Lys", 'M': "Met", 'F': "Phe", 'P': "Pro",
	'S': "Ser", 'T': "Thr", 'W': "Trp", 'Y': "Tyr", 'V': "Val",
	'U': "Sec", 'X': "Ter",
}

var threeLetter = map[string]bool{
	"Ala": true, "Arg": true, "Asn": true, "Asp": true, "Cys": true,
	"Gln": true, "Glu": true, "Gly": true, "His": true, "Ile": true,
	"Leu": true, "Lys": true, "Met": true, "Phe": true, "Pro": true,
	"Ser": true, "Thr": true, "Trp": true, "Tyr": true, "Val": true,
	"Sec": true, "Ter": true, "Xaa": true,
}

func isThreeLetter(s string) bool {
	return threeLetter[s]
}

// Stop is the three-letter code for a termination codon.
const Stop = "Ter"
