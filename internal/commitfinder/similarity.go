package commitfinder

import "strings"

// tagVersionSimilarity ports _compute_tag_version_similarity: a sort value
// for how well a matched tag's version/suffix align with the queried
// version's parts (spec §4.4.5). Lower is more similar.
func tagVersionSimilarity(prefix, prefixSep, tagVersion, tagSuffix, tagSuffixSep string, versionParts []string, version, artifactName string) float64 {
	tagVersionText := strings.ToLower(tagVersion)
	tagParts, _, _ := splitVersion(tagVersionText)

	suffixLower := strings.ToLower(tagSuffix)
	if tagSuffix != "" && len(tagParts) < len(versionParts) {
		suffixParts, _, _ := splitVersion(suffixLower)
		tagParts = append(tagParts, suffixParts...)
	}

	partCount := len(versionParts)
	if len(tagParts) > partCount {
		partCount = len(tagParts)
	}
	for i := 0; i < partCount; i++ {
		if i >= len(versionParts) || i >= len(tagParts) {
			continue
		}
		part := strings.ToLower(versionParts[i])
		if strings.Contains(tagParts[i], part) {
			partCount--
		}
	}
	score := float64(partCount)

	if tagSuffix != "" {
		lastPart := strings.ToLower(versionParts[len(versionParts)-1])
		suffixSplit, _, _ := splitVersion(suffixLower)

		if len(suffixSplit) > 1 {
			matchedOnce := false
			for _, suffixPart := range suffixSplit {
				suffixPart = strings.ToLower(suffixPart)
				if alphabeticOnlyPattern.MatchString(suffixPart) && suffixPart == lastPart {
					score--
					continue
				}
				cmp, ok := suffixComparisonPattern(suffixPart)
				if !ok {
					score++
					continue
				}
				if matchedOnce {
					score++
					continue
				}
				if cmp.MatchString(lastPart) {
					score--
					matchedOnce = true
				} else {
					score++
				}
			}
		} else {
			if len(tagParts) < len(versionParts) {
				lastPart = strings.ToLower(versionParts[len(tagParts)-1])
			}
			if suffixLower != lastPart {
				cmp, ok := suffixComparisonPattern(suffixLower)
				switch {
				case ok && cmp.MatchString(lastPart):
					score -= 0.5
				case !ok:
					score++
				case !releaseWords[suffixLower]:
					score++
				default:
					score += 0.2
				}
			} else {
				score -= 0.5
			}
		}
	}

	if score < 0 {
		score = 0
	}

	if tagSuffix != "" {
		suffixParts, _, _ := splitVersion(suffixLower)
		for _, part := range suffixParts {
			if containsFold(versionParts, part) {
				continue
			}
			if releaseWords[part] {
				score -= 0.1
			}
		}
	}

	if prefix != "" {
		preScore := score
		if len(prefix) > 2 {
			nameSet := map[string]bool{}
			for _, p := range splitName(strings.ToLower(artifactName)) {
				nameSet[p] = true
			}
			bonus := 0.0
			for _, prefixPart := range splitName(strings.ToLower(prefix)) {
				if nameSet[prefixPart] {
					bonus -= 0.1
					continue
				}
				if releaseWords[strings.ToLower(prefixPart)] {
					score -= 0.11
					continue
				}
				bonus = 0.11
				if nameVersionPattern.MatchString(prefixPart) {
					bonus = 1.0
				}
				break
			}
			score += bonus
		}

		if preScore == score {
			if len(prefix) == 1 && alphabeticOnlyPattern.MatchString(prefix) {
				if strings.ToLower(prefix) != "v" {
					score += 0.01
				}
			} else {
				frac := float64(len(prefix)) / 100
				if frac > 0.09 {
					frac = 0.09
				}
				score += frac
			}
		}
	}

	if len(versionParts) > 1 && score < 1 {
		for _, sep := range splitSeparators(tagVersion) {
			if !strings.Contains(version, sep) {
				score += 0.5
				break
			}
		}

		if tagSuffix != "" {
			if idx := indexOf(versionParts, tagSuffix); idx >= 0 {
				versionSeps := splitSeparators(version)
				if idx-1 >= 0 && idx-1 < len(versionSeps) {
					if versionSeps[idx-1] != tagSuffixSep {
						score += 0.5
					}
				}
			}
		}
	}

	if prefixSep != "" {
		sepLen := len(prefixSep)
		if strings.Contains(prefixSep, "v") {
			sepLen--
		}
		score += float64(sepLen) * 0.01
	}

	return score
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func indexOf(haystack []string, needle string) int {
	for i, h := range haystack {
		if h == needle {
			return i
		}
	}
	return -1
}
