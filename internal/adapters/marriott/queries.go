package marriott

// Persisted-query operation names. The provider safelists each one by name and signature.
const (
	opSuggestedPlaces  = "phoenixShopSuggestedPlacesQuery"
	opPlaceDetails     = "phoenixShopSuggestedPlacesDetailsQuery"
	opSearchByGeo      = "phoenixShopDatedSearchByGeoQuery"
	opPropertyInfo     = "phoenixShopHQVPropertyInfoCall"
	opPhotoGallery     = "phoenixShopHQVPhotogalleryCall"
	opAmenities        = "phoenixShopHotelAmenities"
	opBookProperty     = "PhoenixBookProperty"
	opBookProducts     = "PhoenixBookSearchProductsByProperty"
	opBookRoomImages   = "PhoenixBookRoomImages"
	opBookHotelHeader  = "PhoenixBookHotelHeaderData"
	opLandingBootstrap = "landing"
)

var signatures = map[string]string{
	opSuggestedPlaces: "70b3555c91797ca8945e4f4b1bdda42c3e37fa1f08fa99feafb73195702c1d34",
	opPlaceDetails:    "0b89c8ea7a6a6408eaee651983d6c7ee168670b727cc5beea980b2d2edfdbe2b",
	opSearchByGeo:     "099bae9b6c5ec6bbe93315a92a3e14f9cb35a35089770ba4036e4e97b564c5be",
	opPropertyInfo:    "2eae8e087811e65ee7e33679d6c53431de528e1db9441d5cc24303eae7a2b633",
	opPhotoGallery:    "db0d761c49558aadfb86728cdd67e50aa6dd5be802f78659a5efe7e079f04dd2",
	opAmenities:       "77ebd1ceb8c4eafdb023fffbbc02524b7a4dc414152946846d30294d65115711",
	opBookProperty:    "9f165424df22961c9a0d1664c26b9130e2fcf0318bc78c25972cc2e505455376",
	opBookProducts:    "a1079a703a2d21d82c0c65e4337271c3029c69028c6189830f30882170075756",
	opBookRoomImages:  "40894e659a54fb0a859b43c02fcfddd48b45a7cab82c4093a2022bb09efd366d",
	opBookHotelHeader: "40be837690ecfe0509aa28dec18aacd711550258126c658ff0fc06e56603c330",
}

// profile is the client identity the provider expects for a family of operations.
type profile struct {
	clientName  string
	version     string
	application string
	referer     string
	language    string
}

var (
	profileHomepage = profile{"phoenix_homepage", "v1", "homepage", "/default.mi", "en-US,en;q=0.9"}
	profileShop     = profile{"phoenix_shop", "v1", "shop", "/search/findHotels.mi", "en-US"}
	profileBook     = profile{"phoenix_book", "1", "book", "/en-gb/reservation/rateListMenu.mi", "en-GB"}
)

const landingPath = "/en-gb/reservation/rateListMenu.mi"

const querySuggestedPlaces = `query phoenixShopSuggestedPlacesQuery($query: String!) {
  suggestedPlaces(query: $query) {
    edges { node { placeId description primaryDescription secondaryDescription } }
    total
  }
}`

const queryPlaceDetails = `query phoenixShopSuggestedPlacesDetailsQuery($placeId: ID!) {
  suggestedPlaceDetails(placeId: $placeId) {
    placeId
    description
    distance
    location { latitude longitude address city state country countryName }
    types
    destinationType
  }
}`

const querySearchByGeo = `query phoenixShopDatedSearchByGeoQuery($search: SearchLowestAvailableRatesByGeolocationInput!, $offset: Int, $limit: Int, $sort: SearchLowestAvailableRatesSort, $filter: [PropertyDescriptionType]) {
  search {
    lowestAvailableRates {
      searchByGeolocation(search: $search, offset: $offset, limit: $limit, sort: $sort) {
        pageInfo { hasNextPage hasPreviousPage previousOffset currentOffset nextOffset }
        total
        edges {
          node {
            distance
            property {
              id
              basicInformation { name currency latitude longitude bookable brand { id name type } }
              reviews { stars { count } numberOfReviews { count } }
              ... on Hotel { seoNickname }
              media { primaryImage { edges { node { imageUrls { wideHorizontal classicHorizontal square } } } } }
              descriptions(filter: $filter) { text type { code } }
            }
            rates {
              rateModes {
                ... on SearchLowestAvailableRatesRateModesCash {
                  lowestAverageRate { amount { amount currency decimalPoint } }
                }
              }
              lengthOfStay
              status { code }
            }
          }
        }
        facets { type { code } buckets { code label count } }
      }
    }
  }
}`

const queryPropertyInfo = `query phoenixShopHQVPropertyInfoCall($propertyId: ID!, $filter: [ContactNumberType], $descriptionsFilter: [PropertyDescriptionType]) {
  property(id: $propertyId) {
    id
    basicInformation {
      name currency latitude longitude isAdultsOnly isMax openingDate bookable resort
      brand { id name }
      descriptions(filter: $descriptionsFilter) { text type { code label description enumCode } }
    }
    contactInformation {
      address {
        line1 city postalCode
        stateProvince { label description code }
        country { code description label }
      }
      contactNumbers(filter: $filter) { phoneNumber { display original } }
    }
    airports { id name url complimentaryShuttle distanceDetails { description } }
    reviews { stars { count } numberOfReviews { count } }
    parking { fees { fee description } description }
    policies { checkInTime checkOutTime smokefree petsAllowed petsPolicyDescription }
    ... on Hotel { seoNickname }
  }
}`

const queryPhotoGallery = `fragment ProductImageConnectionFragmentHQV on ProductImageConnection {
  edges { node { alternateDescription caption title imageUrls { classicHorizontal } } }
}

query phoenixShopHQVPhotogalleryCall($propertyId: ID!) {
  property(id: $propertyId) {
    id
    media {
      id
      photoGallery {
        dining { ...ProductImageConnectionFragmentHQV }
        eventsAndMeetings { ...ProductImageConnectionFragmentHQV }
        features { ...ProductImageConnectionFragmentHQV }
        guestRooms { ...ProductImageConnectionFragmentHQV }
        hotelView { ...ProductImageConnectionFragmentHQV }
        recreationAndFitness { ...ProductImageConnectionFragmentHQV }
        spa { ...ProductImageConnectionFragmentHQV }
        suites { ...ProductImageConnectionFragmentHQV }
      }
    }
  }
}`

const queryAmenities = `query phoenixShopHotelAmenities($propertyId: ID!) {
  property(id: $propertyId) {
    ... on Hotel {
      id
      facilitiesAndServices {
        type { code description }
        description groupId groupName
        details { key value }
        categoryType { code description }
      }
      matchingSearchFacets { dimension { code description } }
    }
  }
}`

const queryBookProperty = `query PhoenixBookProperty($propertyId: ID!) {
  property(id: $propertyId) {
    ... on Hotel {
      basicInformation {
        ... on HotelBasicInformation { descriptions { type { code } text } isAdultsOnly resort }
      }
    }
  }
}`

const queryBookProducts = `query PhoenixBookSearchProductsByProperty($search: ProductByPropertySearchInput, $offset: Int, $limit: Int) {
  searchProductsByProperty(search: $search, offset: $offset, limit: $limit) {
    edges {
      node {
        ... on HotelRoom {
          id
          availabilityAttributes { isNearSellout rateCategory { type { code } value } }
          rates {
            name description
            localizedName { translatedText }
            rateAmountsByMode { averageNightlyRatePerUnit { amount { origin { amount currency valueDecimalPoint } } } }
          }
          basicInformation {
            type name description membersOnly freeCancellationUntil
            localizedName { translatedText }
            localizedDescription { translatedText }
            ratePlan { ratePlanType ratePlanCode marketCode }
          }
          totalPricing {
            quantity
            rateAmountsByMode {
              grandTotal { amount { origin { value: amount valueDecimalPoint } } }
              subtotalPerQuantity { amount { origin { currency value: amount valueDecimalPoint } } }
            }
          }
        }
      }
    }
    total
  }
}`

const queryBookRoomImages = `query PhoenixBookRoomImages($propertyId: ID!) {
  property(id: $propertyId) {
    ... on Hotel {
      media {
        photoGallery {
          imagesForAllTags {
            total
            assets { imageUrls { wideHorizontal wideVertical } roomPoolCodes roomTypeCodes title caption sortOrder }
          }
        }
      }
    }
  }
}`

const queryBookHotelHeader = `query PhoenixBookHotelHeaderData($propertyId: ID!) {
  property(id: $propertyId) {
    id
    basicInformation { latitude longitude name currency brand { id } }
    reviews { numberOfReviews { count description } stars { count description } }
    contactInformation {
      contactNumbers { number type { description code } }
      address { line1 line2 line3 city postalCode stateProvince { description } country { description code } }
    }
    ... on Hotel { seoNickname }
    media { primaryImage { edges { node { imageUrls { wideHorizontal } } } } }
  }
}`
