package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"resto_back_end/internal/database"
	"resto_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateMenuItem ajoute un plat au catalogue (admin)
func CreateMenuItem(c *gin.Context) {
	var input struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Category    string   `json:"category" binding:"required"`
		Price       float64  `json:"price" binding:"required"`
		Image       string   `json:"image"`
		Tags        []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	if input.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	item := models.MenuItem{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Image:       input.Image,
		Available:   true,
		Tags:        input.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := database.Menus().InsertOne(ctx, item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur insertion"})
		return
	}

	go indexMenuItem(item)

	c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem modifie un plat (admin)
func UpdateMenuItem(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID invalide"})
		return
	}

	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	// Seuls les champs du catalogue sont modifiables
	allowed := map[string]bool{
		"name": true, "description": true, "category": true,
		"price": true, "image": true, "available": true, "tags": true,
	}
	set := bson.M{"updated_at": time.Now()}
	for k, v := range input {
		if allowed[k] {
			set[k] = v
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := database.Menus().UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour"})
		return
	}
	if res.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plat introuvable"})
		return
	}

	var item models.MenuItem
	if err := database.Menus().FindOne(ctx, bson.M{"_id": oid}).Decode(&item); err == nil {
		go indexMenuItem(item)
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// DeleteMenuItem supprime un plat (admin)
func DeleteMenuItem(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := database.Menus().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plat introuvable"})
		return
	}

	if database.Elastic != nil {
		req := esapi.DeleteRequest{Index: "menus", DocumentID: oid.Hex()}
		if res, err := req.Do(context.Background(), database.Elastic); err == nil {
			res.Body.Close()
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// UploadMenuImage envoie une image de plat vers MinIO (admin)
func UploadMenuImage(c *gin.Context) {
	if database.MinIO == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stockage d'images indisponible"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier image requis"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lecture fichier échouée"})
		return
	}
	defer f.Close()

	objectName := uuid.NewString() + filepath.Ext(file.Filename)
	bucket := database.MinIOBucket()

	_, err = database.MinIO.PutObject(c.Request.Context(), bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		log.Println("❌ Erreur upload MinIO:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload échoué"})
		return
	}

	url := fmt.Sprintf("http://%s/%s/%s", os.Getenv("MINIO_ENDPOINT"), bucket, objectName)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// indexMenuItem pousse un plat dans l'index Elasticsearch
func indexMenuItem(item models.MenuItem) {
	if database.Elastic == nil {
		return
	}

	data, _ := json.Marshal(item)
	req := esapi.IndexRequest{
		Index:      "menus",
		DocumentID: item.ID.Hex(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		log.Println("❌ Erreur indexation Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", item.Name, res.String())
	}
}
