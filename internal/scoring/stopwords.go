package scoring

// englishStopWords is the word list removed before TF-IDF vectorization and
// used as phrase delimiters during keyword extraction.
var englishStopWords = toSet(
	"a", "about", "above", "across", "after", "afterwards", "again", "against", "all", "almost",
	"alone", "along", "already", "also", "although", "always", "am", "among", "amongst", "an",
	"and", "another", "any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are", "around",
	"as", "at", "be", "became", "because", "become", "becomes", "becoming", "been", "before",
	"beforehand", "behind", "being", "below", "beside", "besides", "between", "beyond", "both", "but",
	"by", "can", "cannot", "could", "did", "do", "does", "doing", "done", "down",
	"due", "during", "each", "eg", "either", "else", "elsewhere", "enough", "etc", "even",
	"ever", "every", "everyone", "everything", "everywhere", "except", "few", "for", "former", "formerly",
	"from", "further", "had", "has", "have", "having", "he", "hence", "her", "here",
	"hereby", "herein", "hers", "herself", "him", "himself", "his", "how", "however", "i",
	"ie", "if", "in", "indeed", "into", "is", "it", "its", "itself", "just",
	"last", "latter", "least", "less", "made", "many", "may", "me", "meanwhile", "might",
	"mine", "more", "moreover", "most", "mostly", "much", "must", "my", "myself", "namely",
	"neither", "never", "nevertheless", "next", "no", "nobody", "none", "nor", "not", "nothing",
	"now", "nowhere", "of", "off", "often", "on", "once", "one", "only", "onto",
	"or", "other", "others", "otherwise", "our", "ours", "ourselves", "out", "over", "own",
	"per", "perhaps", "please", "rather", "same", "several", "she", "should", "since", "so",
	"some", "somehow", "someone", "something", "sometime", "sometimes", "somewhere", "still", "such", "than",
	"that", "the", "their", "theirs", "them", "themselves", "then", "thence", "there", "thereafter",
	"thereby", "therefore", "therein", "these", "they", "this", "those", "though", "through", "throughout",
	"thru", "thus", "to", "together", "too", "toward", "towards", "under", "until", "up",
	"upon", "us", "very", "via", "was", "we", "well", "were", "what", "whatever",
	"when", "whence", "whenever", "where", "whereas", "whereby", "wherein", "whether", "which", "while",
	"who", "whoever", "whole", "whom", "whose", "why", "will", "with", "within", "without",
	"would", "yet", "you", "your", "yours", "yourself", "yourselves",
)

// fillerWords delimit phrases during keyword extraction only. They are
// common in job postings and resumes but never name a skill on their own.
var fillerWords = toSet(
	"ability", "able", "apply", "applicant", "applicants", "bonus", "candidate", "candidates",
	"closely", "company", "demonstrated", "desired", "desirable", "environment", "excellent",
	"experience", "experienced", "expert", "expertise", "familiar", "familiarity", "good",
	"great", "hands-on", "ideal", "ideally", "include", "includes", "including", "join",
	"knowledge", "looking", "minimum", "need", "needed", "needs", "nice", "opportunity",
	"plus", "position", "preferred", "preferably", "proficiency", "proficient", "proven",
	"related", "relevant", "require", "required", "requirement", "requirements", "requires",
	"responsibilities", "responsible", "role", "seeking", "skill", "skilled", "skills",
	"solid", "strong", "understanding", "use", "used", "using", "want", "work", "working",
	"year", "years", "yrs",
)

// acronymExclusions are all-caps words that are not meaningful acronyms.
var acronymExclusions = toSet(
	"AND", "OR", "THE", "FOR", "NOT", "BUT", "ARE", "WAS", "WERE", "YOU", "ALL",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isStopWord(w string) bool {
	_, ok := englishStopWords[w]
	return ok
}

func isDelimiterWord(w string) bool {
	if _, ok := englishStopWords[w]; ok {
		return true
	}
	_, ok := fillerWords[w]
	return ok
}
