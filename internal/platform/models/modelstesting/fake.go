package modelstesting

import (
	"fmt"
	"math/rand"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/go-faker/faker/v4"
)

// FakeListing returns models.Listing with fake data and random number of fake image URLs.
func FakeListing(ops ...func(l *models.Listing)) models.Listing {
	listing := models.Listing{
		SKU:         faker.UUIDDigit(),
		AdType:      faker.Word(),
		Category:    faker.Word(),
		Title:       faker.Sentence(),
		Description: faker.Paragraph(),
		Condition:   faker.Word(),
		Returns:     "Oui",
		Warranty:    "Non",
		Price:       fmt.Sprintf("%d.%02d", rand.Intn(500), rand.Intn(100)),
		Stock:       fmt.Sprint(1 + rand.Intn(9)),
		ImageURLs:   fakeImageURLs(),
	}

	for _, op := range ops {
		op(&listing)
	}

	return listing
}

// FakeJobConfig returns models.JobConfig with fake credentials and shipping.
func FakeJobConfig(ops ...func(c *models.JobConfig)) models.JobConfig {
	config := models.JobConfig{
		Credentials: models.Credentials{
			Email:    faker.Email(),
			Password: faker.Password(),
		},
		Shipping: models.Shipping{
			PickupEnabled:  true,
			PickupLocation: faker.Word(),
			PerItemFee:     float64(rand.Intn(20)),
			ExtraFee:       float64(rand.Intn(10)),
		},
	}

	for _, op := range ops {
		op(&config)
	}

	return config
}

// FakeCookie returns models.Cookie with fake data.
func FakeCookie(ops ...func(c *models.Cookie)) models.Cookie {
	cookie := models.Cookie{
		Name:     faker.Word(),
		Value:    faker.UUIDHyphenated(),
		Domain:   ".e-vend.ca",
		Path:     "/",
		Expires:  -1,
		Secure:   true,
		HTTPOnly: true,
	}

	for _, op := range ops {
		op(&cookie)
	}

	return cookie
}

func fakeImageURLs() []string {
	urlsLen := rand.Intn(4)
	urls := make([]string, 0, urlsLen)
	for range urlsLen {
		urls = append(urls, faker.URL()+"/"+faker.Word()+".jpg")
	}

	return urls
}
