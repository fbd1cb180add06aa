package scraper

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	syntheticPosts            = 15
	syntheticCommentsPerPost  = 3
	syntheticEmployees        = 12
	syntheticSpecialitiesList = "Technology,Innovation,Software Development,Consulting"
)

var (
	knownOrganizations = map[string]string{
		"deepsolv":  "DeepSolv",
		"google":    "Google",
		"microsoft": "Microsoft",
		"amazon":    "Amazon",
		"apple":     "Apple",
		"meta":      "Meta",
		"netflix":   "Netflix",
	}

	industries = []string{"Technology", "Software Development", "IT Services", "Consulting", "E-commerce"}

	postTemplates = []string{
		"Excited to announce our latest product launch!",
		"We're hiring! Join our amazing team.",
		"Thank you to our incredible customers for the support.",
		"Check out our latest blog post on industry trends.",
		"Celebrating another successful quarter!",
		"Our team participated in the tech conference today.",
		"New partnership announcement coming soon!",
		"Looking back at our journey this year.",
		"Tips for success in the tech industry.",
		"Meet our employee of the month!",
		"Proud to share our latest achievements.",
		"Innovation drives everything we do.",
		"Customer success story: How we helped transform businesses.",
		"Behind the scenes at our office.",
		"Welcoming new team members to the family!",
	}
	hashtags   = []string{"tech", "innovation", "growth", "team", "success"}
	mediaTypes = []string{"image", "text", "video"}

	commenters = []string{
		"John Smith", "Sarah Johnson", "Mike Williams", "Emily Davis", "Chris Brown",
		"Jessica Taylor", "David Wilson", "Amanda Martinez", "Ryan Anderson", "Lisa Thomas",
	}
	commentTexts = []string{
		"Great post! Very insightful.",
		"Congratulations on the achievement!",
		"Looking forward to more updates.",
		"This is exactly what we needed.",
		"Impressive work by the team!",
		"Thanks for sharing this information.",
		"Really inspiring content!",
		"Keep up the great work!",
		"This resonates with our experience.",
		"Would love to learn more about this.",
	}

	firstNames = []string{
		"James", "Maria", "Robert", "Linda", "David", "Elizabeth", "William", "Jennifer",
		"Michael", "Patricia", "Richard", "Susan", "Joseph", "Margaret", "Thomas",
	}
	lastNames = []string{
		"Anderson", "Thomas", "Jackson", "White", "Harris", "Martin", "Garcia", "Lee",
		"Robinson", "Clark", "Lewis", "Walker", "Hall", "Young", "King",
	}
	jobTitles = []string{
		"Software Engineer", "Senior Developer", "Product Manager", "Data Scientist",
		"UX Designer", "Marketing Manager", "Sales Lead", "HR Manager",
		"DevOps Engineer", "QA Engineer", "Tech Lead", "Engineering Manager",
	}
	locations = []string{
		"San Francisco, CA", "New York, NY", "Seattle, WA", "Austin, TX",
		"Boston, MA", "Chicago, IL", "Denver, CO", "Los Angeles, CA",
	}
)

// Synthesizer builds placeholder organizations. Output depends only on the
// page id and the clock, so repeated calls for one id agree.
type Synthesizer struct {
	now   func() time.Time
	title cases.Caser
}

func NewSynthesizer(now func() time.Time) *Synthesizer {
	return &Synthesizer{
		now:   now,
		title: cases.Title(language.English),
	}
}

func (s *Synthesizer) Organization(pageID string) ScrapedOrganization {
	rng := seededRand(pageID)
	now := s.now().UTC()
	lower := strings.ToLower(pageID)

	name, ok := knownOrganizations[lower]
	if !ok {
		name = s.title.String(pageID)
	}
	initial := "?"
	if name != "" {
		initial = strings.ToUpper(name[:1])
	}

	followers := int64(rng.IntN(95_001) + 5_000)
	employees := int64(rng.IntN(4_951) + 50)
	founded := rng.IntN(21) + 2000

	return ScrapedOrganization{
		PageID:         pageID,
		Provenance:     ProvenanceSynthetic,
		Name:           &name,
		URL:            optional("https://www.linkedin.com/company/" + pageID),
		ProfilePicture: optional("https://placehold.co/200x200/3b82f6/white?text=" + initial),
		Description:    optional(name + " is a leading company focused on innovation and growth. We specialize in delivering exceptional solutions to our clients worldwide."),
		Website:        optional("https://www." + lower + ".com"),
		Industry:       optional(pick(rng, industries)),
		FollowerCount:  &followers,
		EmployeeCount:  &employees,
		Specialities:   strings.Split(syntheticSpecialitiesList, ","),
		Headquarters:   optional("San Francisco, California"),
		FoundedYear:    &founded,
		CompanyType:    optional("Privately Held"),
		Posts:          s.posts(rng, pageID, now),
		Employees:      s.employees(rng),
	}
}

func (s *Synthesizer) posts(rng *rand.Rand, pageID string, now time.Time) []ScrapedPost {
	posts := make([]ScrapedPost, 0, syntheticPosts)
	for i := range syntheticPosts {
		likes := int64(rng.IntN(951) + 50)
		commentCount := int64(rng.IntN(96) + 5)
		shares := int64(rng.IntN(50) + 1)
		postedAt := now.Add(-time.Duration(i) * 48 * time.Hour)

		comments := make([]ScrapedComment, 0, syntheticCommentsPerPost)
		for range syntheticCommentsPerPost {
			commentLikes := int64(rng.IntN(20) + 1)
			commentedAt := postedAt.Add(time.Duration(rng.IntN(48)+1) * time.Hour)
			if commentedAt.After(now) {
				commentedAt = now
			}
			comments = append(comments, ScrapedComment{
				AuthorName:  optional(pick(rng, commenters)),
				Content:     optional(pick(rng, commentTexts)),
				LikeCount:   &commentLikes,
				CommentedAt: &commentedAt,
			})
		}

		posts = append(posts, ScrapedPost{
			ExternalID:   optional(fmt.Sprintf("synthetic_%s_%d", pageID, i)),
			Content:      optional(fmt.Sprintf("%s #%s", postTemplates[i%len(postTemplates)], pick(rng, hashtags))),
			MediaType:    optional(pick(rng, mediaTypes)),
			LikeCount:    &likes,
			CommentCount: &commentCount,
			ShareCount:   &shares,
			PostedAt:     &postedAt,
			Comments:     comments,
		})
	}
	return posts
}

// employees walks the name lists with distinct last names so that no two
// synthetic people share a full name
func (s *Synthesizer) employees(rng *rand.Rand) []ScrapedEmployee {
	firstOffset := rng.IntN(len(firstNames))
	lastOffset := rng.IntN(len(lastNames))

	people := make([]ScrapedEmployee, 0, syntheticEmployees)
	for i := range syntheticEmployees {
		first := firstNames[(firstOffset+i*7)%len(firstNames)]
		last := lastNames[(lastOffset+i)%len(lastNames)]
		title := pick(rng, jobTitles)
		handle := strings.ToLower(first) + "." + strings.ToLower(last)

		people = append(people, ScrapedEmployee{
			FullName:       first + " " + last,
			Username:       optional(handle),
			Headline:       optional(title),
			JobTitle:       optional(title),
			Location:       optional(pick(rng, locations)),
			ProfileURL:     optional("https://www.linkedin.com/in/" + strings.ToLower(first+last)),
			ProfilePicture: optional(fmt.Sprintf("https://placehold.co/100x100/6366f1/white?text=%c%c", first[0], last[0])),
		})
	}
	return people
}

func seededRand(pageID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(pageID)))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}
